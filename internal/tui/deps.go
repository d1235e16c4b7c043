package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/garrettladley/minimon/internal/format"
)

// DashboardClient reads the formatted documents a minimon server exposes.
type DashboardClient interface {
	PumpData(ctx context.Context) (format.PumpData, error)
	GraphData(ctx context.Context) (format.GraphData, error)
}

type Deps struct {
	Ctx      context.Context
	Logger   *slog.Logger
	Client   DashboardClient
	Interval time.Duration
}
