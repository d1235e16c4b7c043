package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/garrettladley/minimon/internal/xhttp"
	"github.com/garrettladley/minimon/internal/xslog"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	pingers map[string]Pinger
}

// NewHealth checks every named dependency on each request.
func NewHealth(pingers map[string]Pinger) *Health {
	return &Health{pingers: pingers}
}

// HandleHealth handles GET /health.
func (h *Health) HandleHealth(w http.ResponseWriter, r *http.Request) {
	const pingTimeout = 2 * time.Second

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			xslog.FromContext(ctx).ErrorContext(ctx, "health check failed",
				xslog.Backend(name),
				xslog.Error(err),
			)
			xhttp.WriteText(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	xhttp.WriteText(w, http.StatusOK, "ok")
}
