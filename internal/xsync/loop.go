// Package xsync drives the vendor client: log in, fetch recent data on the
// server's cadence, and park when the stored credentials stop working.
package xsync

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/garrettladley/minimon/internal/client/carelink"
	"github.com/garrettladley/minimon/internal/metrics"
	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/xslog"
)

type Vendor interface {
	Login(ctx context.Context) error
	RecentData(ctx context.Context) (*carelink.RecentData, error)
}

// ClientFactory builds a vendor client from the credentials currently stored.
// It is called once per login cycle.
type ClientFactory func() (Vendor, error)

// TokenWatcher signals operator writes of new credentials.
type TokenWatcher interface {
	Changed() <-chan struct{}
}

type Config struct {
	UpdateInterval  time.Duration
	RetryInterval   time.Duration
	ErrorInterval   time.Duration
	Slack           time.Duration
	LoginBackoff    time.Duration
	LoginMaxBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		UpdateInterval:  300 * time.Second,
		RetryInterval:   120 * time.Second,
		ErrorInterval:   60 * time.Second,
		Slack:           10 * time.Second,
		LoginBackoff:    30 * time.Second,
		LoginMaxBackoff: 10 * time.Minute,
	}
}

type Loop struct {
	factory ClientFactory
	tokens  TokenWatcher
	cfg     Config
	logger  *slog.Logger

	now      func() time.Time
	newTimer func(d time.Duration) (<-chan time.Time, func() bool)

	state atomic.Int32
}

type Option func(*Loop)

func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

func New(factory ClientFactory, tokens TokenWatcher, cfg Config, logger *slog.Logger, opts ...Option) *Loop {
	l := &Loop{
		factory: factory,
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		newTimer: func(d time.Duration) (<-chan time.Time, func() bool) {
			t := time.NewTimer(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	metrics.SetClientState(StateInit.String(), stateNames())
	return l
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run cycles through login and fetching until ctx is done, which is the only
// way it returns.
func (l *Loop) Run(ctx context.Context) error {
	backoff := l.cfg.LoginBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.setState(ctx, StateInit)

		// Grabbed before reading credentials so a save racing with this
		// cycle still wakes the next wait.
		changed := l.tokens.Changed()

		client, err := l.factory()
		if errors.Is(err, carelink.ErrNoCredentials) {
			l.logger.WarnContext(ctx, "no credentials stored, waiting for login form")
			if err := l.awaitNewToken(ctx, changed); err != nil {
				return err
			}
			continue
		}

		if err == nil {
			l.setState(ctx, StateAwaitingLogin)
			err = client.Login(ctx)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			l.logger.ErrorContext(ctx, "carelink login failed",
				xslog.Error(err),
				xslog.Backoff(backoff))

			if err := l.wait(ctx, backoff, changed); err != nil {
				return err
			}
			backoff = min(backoff*2, l.cfg.LoginMaxBackoff)
			continue
		}

		metrics.LoginsTotal.WithLabelValues("ok").Inc()
		backoff = l.cfg.LoginBackoff
		l.setState(ctx, StateLoginOK)

		if err := l.fetchLoop(ctx, client, changed); err != nil {
			return err
		}

		if err := l.awaitNewToken(ctx, changed); err != nil {
			return err
		}
	}
}

// fetchLoop returns nil when the vendor refuses the credentials or when new
// credentials are saved, and ctx.Err() when cancelled. Every other failure is
// retried.
func (l *Loop) fetchLoop(ctx context.Context, client Vendor, changed <-chan struct{}) error {
	for attempt := 1; ; attempt++ {
		l.logger.DebugContext(ctx, "fetching recent data", xslog.Attempt(attempt))

		data, err := client.RecentData(ctx)
		switch {
		case err == nil:
			metrics.RecentDataFetchesTotal.WithLabelValues("ok").Inc()
			delay := NextDelay(data, l.now(), l.cfg)
			l.logger.DebugContext(ctx, "recent data received",
				xslog.Delay(delay),
				xslog.NextAt(l.now().Add(delay)))
			if err := l.wait(ctx, delay+l.cfg.Slack, changed); err != nil {
				return err
			}
			if closed(changed) {
				return nil
			}

		case ctx.Err() != nil:
			return ctx.Err()

		case carelink.IsAuthError(err):
			metrics.RecentDataFetchesTotal.WithLabelValues("unauthorized").Inc()
			l.logger.ErrorContext(ctx, "carelink refused credentials", xslog.Error(err))
			return nil

		default:
			result := "error"
			if errors.Is(err, carelink.ErrNoData) {
				result = "no_data"
			}
			metrics.RecentDataFetchesTotal.WithLabelValues(result).Inc()
			l.logger.ErrorContext(ctx, "failed to fetch recent data",
				xslog.Error(err),
				xslog.Delay(l.cfg.ErrorInterval))
			if err := l.wait(ctx, l.cfg.ErrorInterval, changed); err != nil {
				return err
			}
			if closed(changed) {
				return nil
			}
		}
	}
}

func (l *Loop) awaitNewToken(ctx context.Context, changed <-chan struct{}) error {
	l.setState(ctx, StateAwaitingNewToken)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-changed:
		l.logger.InfoContext(ctx, "new credentials stored, restarting login")
		return nil
	}
}

// wait blocks for d, until wake is closed, or until ctx is done. A nil wake
// never fires.
func (l *Loop) wait(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	c, stop := l.newTimer(d)
	defer stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c:
		return nil
	case <-wake:
		return nil
	}
}

func closed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

func (l *Loop) setState(ctx context.Context, s State) {
	prev := State(l.state.Swap(int32(s)))
	if prev == s {
		return
	}
	metrics.SetClientState(s.String(), stateNames())
	l.logger.InfoContext(ctx, "carelink client state changed",
		xslog.State(s.String()),
		xslog.PreviousState(prev.String()))
}

// NextDelay is how long to wait before the next fetch: until the server's next
// expected upload, or RetryInterval when that is unknown or already past.
func NextDelay(data *carelink.RecentData, now time.Time, cfg Config) time.Duration {
	if data == nil {
		return cfg.RetryInterval
	}
	ms, ok := pump.Float(data.LastConduitUpdateServerTime)
	if !ok {
		return cfg.RetryInterval
	}

	next := float64(int64(ms/1000)) + cfg.UpdateInterval.Seconds()
	seconds := int64(next - float64(now.UnixNano())/float64(time.Second))
	if seconds <= 0 {
		return cfg.RetryInterval
	}
	return time.Duration(seconds) * time.Second
}
