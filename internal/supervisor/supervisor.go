// Package supervisor keeps the external proxy process running.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garrettladley/minimon/internal/metrics"
	"github.com/garrettladley/minimon/internal/xslog"
)

var ErrStartTimeout = errors.New("process did not become ready")

// Process is an external program the dashboard depends on.
type Process interface {
	// IsRunning probes liveness; it never blocks longer than the context.
	IsRunning(ctx context.Context) bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Supervisor struct {
	proc          Process
	startTimeout  time.Duration
	restartDelay  time.Duration
	probeInterval time.Duration
	logger        *slog.Logger
}

type Option func(*Supervisor)

func WithStartTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.startTimeout = d }
}

func WithRestartDelay(d time.Duration) Option {
	return func(s *Supervisor) { s.restartDelay = d }
}

func WithProbeInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.probeInterval = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

func New(proc Process, opts ...Option) *Supervisor {
	s := &Supervisor{
		proc:          proc,
		startTimeout:  10 * time.Second,
		restartDelay:  2 * time.Second,
		probeInterval: 250 * time.Millisecond,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureRunning starts the process unless something already answers its
// liveness probe.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if s.proc.IsRunning(ctx) {
		s.logger.InfoContext(ctx, "proxy already running")
		return nil
	}
	return s.start(ctx)
}

// Restart stops the process, waits the restart delay and starts it again. A
// failed stop is logged and the start is still attempted.
func (s *Supervisor) Restart(ctx context.Context) (err error) {
	defer func() {
		metrics.ProxyRestartsTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if err := s.proc.Stop(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to stop proxy", xslog.Error(err))
	}

	if err := sleep(ctx, s.restartDelay); err != nil {
		return err
	}

	return s.start(ctx)
}

func (s *Supervisor) start(ctx context.Context) error {
	if err := s.proc.Start(ctx); err != nil {
		return fmt.Errorf("starting proxy: %w", err)
	}

	deadline := time.Now().Add(s.startTimeout)
	for attempt := 1; ; attempt++ {
		if s.proc.IsRunning(ctx) {
			s.logger.InfoContext(ctx, "proxy ready", xslog.Attempt(attempt))
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrStartTimeout, s.startTimeout)
		}
		if err := sleep(ctx, s.probeInterval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
