package format

import (
	"log/slog"
	"time"

	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/snapshot"
)

// Formatter binds the pure formatting functions to a clock and a display
// location.
type Formatter struct {
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Formatter)

func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Formatter) { f.logger = logger }
}

func NewFormatter(loc *time.Location, opts ...Option) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	f := &Formatter{
		loc:    loc,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Formatter) Location() *time.Location {
	return f.loc
}

func (f *Formatter) PumpData(snap *snapshot.Snapshot[pump.Telemetry]) PumpData {
	return Telemetry(snap, f.now(), f.loc)
}

func (f *Formatter) GraphData(snap *snapshot.Snapshot[pump.Graph]) GraphData {
	return Graph(snap, f.logger)
}
