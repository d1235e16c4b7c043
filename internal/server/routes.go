// Package server wires the dashboard's HTTP surface.
package server

import (
	"log/slog"
	"net/http"

	"github.com/garrettladley/minimon/internal/server/handler"
	"github.com/garrettladley/minimon/internal/storage"
	"github.com/garrettladley/minimon/internal/xhttp/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const loginRateLimitPrefix = "login:"

type Deps struct {
	Pump    *handler.Pump
	Login   *handler.Login
	Health  *handler.Health
	History *handler.History // nil disables /api/history
	Limiter storage.RateLimiter
	Logger  *slog.Logger
}

// Routes builds the full handler, middleware included.
func Routes(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", d.Pump.HandleIndex)
	mux.HandleFunc("GET /api/pump-data", d.Pump.HandlePumpData)
	mux.HandleFunc("GET /api/pump-graph-data", d.Pump.HandlePumpGraphData)

	mux.HandleFunc("GET /login", d.Login.HandleForm)
	mux.Handle("POST /login", middleware.Chain(
		http.HandlerFunc(d.Login.HandleSubmit),
		middleware.RateLimit(d.Limiter, loginRateLimitPrefix),
	))

	if d.History != nil {
		mux.HandleFunc("GET /api/history", d.History.HandleHistory)
	}

	mux.HandleFunc("GET /health", d.Health.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.Logging,
		middleware.Logger(d.Logger),
		middleware.RequestID(),
		middleware.SecurityHeaders,
		middleware.Gzip,
	)
}
