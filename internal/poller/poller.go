// Package poller keeps the latest proxy documents in snapshot cells.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garrettladley/minimon/internal/client/proxy"
	"github.com/garrettladley/minimon/internal/metrics"
	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/snapshot"
	"github.com/garrettladley/minimon/internal/storage"
	"github.com/garrettladley/minimon/internal/xslog"
	"golang.org/x/sync/errgroup"
)

const (
	endpointTelemetry = "telemetry"
	endpointGraph     = "graph"
)

type Source interface {
	FetchTelemetry(ctx context.Context) (*pump.Telemetry, []byte, error)
	FetchGraph(ctx context.Context) (*pump.Graph, []byte, error)
}

// Recorder persists glucose samples from graph documents.
type Recorder interface {
	Record(ctx context.Context, sgs []pump.SensorGlucose) (int, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

type Poller struct {
	source    Source
	telemetry *snapshot.Cell[pump.Telemetry]
	graph     *snapshot.Cell[pump.Graph]

	interval time.Duration
	timeout  time.Duration

	mirror    storage.SnapshotStore
	history   Recorder
	retention time.Duration

	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithTimeout bounds each individual fetch.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) { p.timeout = d }
}

// WithMirror copies every accepted document to store.
func WithMirror(store storage.SnapshotStore) Option {
	return func(p *Poller) { p.mirror = store }
}

// WithHistory records graph samples and drops those older than retention.
func WithHistory(rec Recorder, retention time.Duration) Option {
	return func(p *Poller) {
		p.history = rec
		p.retention = retention
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func New(source Source, telemetry *snapshot.Cell[pump.Telemetry], graph *snapshot.Cell[pump.Graph], opts ...Option) *Poller {
	p := &Poller{
		source:    source,
		telemetry: telemetry,
		graph:     graph,
		interval:  time.Minute,
		timeout:   15 * time.Second,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "starting poller", xslog.Delay(p.interval))

	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one tick: both documents are fetched concurrently and each
// cell is replaced only if its own fetch produced a document. Errors are
// logged, never returned.
func (p *Poller) Poll(ctx context.Context) {
	// A plain Group: one failing fetch must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		p.pollTelemetry(ctx)
		return nil
	})
	g.Go(func() error {
		p.pollGraph(ctx)
		return nil
	})
	_ = g.Wait()
}

func (p *Poller) pollTelemetry(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tel, raw, err := p.source.FetchTelemetry(ctx)
	if err != nil {
		p.fetchFailed(ctx, endpointTelemetry, err)
		return
	}

	fetchedAt := p.now()
	p.telemetry.Replace(snapshot.Snapshot[pump.Telemetry]{Data: *tel, Raw: raw, FetchedAt: fetchedAt})
	p.fetchSucceeded(ctx, endpointTelemetry, fetchedAt)

	if tel.LastSG != nil {
		metrics.Glucose.Set(float64(tel.LastSG.Value()))
	}

	attrs := []any{xslog.Endpoint(endpointTelemetry)}
	if updated, ok := tel.UpdatedAt(); ok {
		attrs = append(attrs, xslog.UpdatedAt(updated))
	}
	p.logger.DebugContext(ctx, "telemetry updated", attrs...)

	p.mirrorSnapshot(ctx, storage.SnapshotTelemetry, raw, fetchedAt)
}

func (p *Poller) pollGraph(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	graph, raw, err := p.source.FetchGraph(ctx)
	if err != nil {
		p.fetchFailed(ctx, endpointGraph, err)
		return
	}

	fetchedAt := p.now()
	p.graph.Replace(snapshot.Snapshot[pump.Graph]{Data: *graph, Raw: raw, FetchedAt: fetchedAt})
	p.fetchSucceeded(ctx, endpointGraph, fetchedAt)

	attrs := []any{xslog.Endpoint(endpointGraph), xslog.Count(len(graph.PatientData.SGs))}
	if updated, ok := graph.PatientData.UpdatedAt(); ok {
		attrs = append(attrs, xslog.UpdatedAt(updated))
	}
	p.logger.InfoContext(ctx, "graph updated", attrs...)

	p.mirrorSnapshot(ctx, storage.SnapshotGraph, raw, fetchedAt)
	p.recordHistory(ctx, graph.PatientData.SGs, fetchedAt)
}

func (p *Poller) fetchFailed(ctx context.Context, endpoint string, err error) {
	if errors.Is(err, proxy.ErrNoUpdate) {
		metrics.PollFetchesTotal.WithLabelValues(endpoint, "no_update").Inc()
		p.logger.WarnContext(ctx, "no update from proxy, keeping previous snapshot",
			xslog.Endpoint(endpoint),
			xslog.Error(err))
		return
	}
	metrics.PollFetchesTotal.WithLabelValues(endpoint, "error").Inc()
	p.logger.ErrorContext(ctx, "failed to fetch from proxy, keeping previous snapshot",
		xslog.Endpoint(endpoint),
		xslog.Error(err))
}

func (p *Poller) fetchSucceeded(_ context.Context, endpoint string, at time.Time) {
	metrics.PollFetchesTotal.WithLabelValues(endpoint, "ok").Inc()
	metrics.PollLastSuccess.WithLabelValues(endpoint).Set(float64(at.Unix()))
}

func (p *Poller) mirrorSnapshot(ctx context.Context, kind storage.SnapshotKind, raw []byte, at time.Time) {
	if p.mirror == nil {
		return
	}
	if err := p.mirror.SaveSnapshot(ctx, kind, storage.Snapshot{Raw: raw, FetchedAt: at}); err != nil {
		p.logger.WarnContext(ctx, "failed to mirror snapshot",
			xslog.Endpoint(string(kind)),
			xslog.Error(err))
	}
}

func (p *Poller) recordHistory(ctx context.Context, sgs []pump.SensorGlucose, at time.Time) {
	if p.history == nil {
		return
	}

	n, err := p.history.Record(ctx, sgs)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to record glucose history", xslog.Error(err))
		return
	}
	metrics.HistorySamplesTotal.Add(float64(n))

	if p.retention <= 0 {
		return
	}
	pruned, err := p.history.Prune(ctx, at.Add(-p.retention))
	if err != nil {
		p.logger.WarnContext(ctx, "failed to prune glucose history", xslog.Error(err))
		return
	}
	if n > 0 || pruned > 0 {
		p.logger.DebugContext(ctx, "glucose history updated",
			xslog.Count(n),
			slog.Int64("pruned", pruned))
	}
}

// Restore seeds empty cells from the mirror so a restarted dashboard serves
// the last known documents before its first poll lands.
func (p *Poller) Restore(ctx context.Context) error {
	if p.mirror == nil {
		return nil
	}

	var errs []error

	if p.telemetry.Current() == nil {
		snap, err := p.mirror.LoadSnapshot(ctx, storage.SnapshotTelemetry)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			errs = append(errs, fmt.Errorf("loading telemetry snapshot: %w", err))
		default:
			tel, err := proxy.DecodeTelemetry(snap.Raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("decoding telemetry snapshot: %w", err))
				break
			}
			p.telemetry.Replace(snapshot.Snapshot[pump.Telemetry]{Data: *tel, Raw: snap.Raw, FetchedAt: snap.FetchedAt})
			p.logger.InfoContext(ctx, "restored telemetry snapshot", xslog.UpdatedAt(snap.FetchedAt))
		}
	}

	if p.graph.Current() == nil {
		snap, err := p.mirror.LoadSnapshot(ctx, storage.SnapshotGraph)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			errs = append(errs, fmt.Errorf("loading graph snapshot: %w", err))
		default:
			graph, err := proxy.DecodeGraph(snap.Raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("decoding graph snapshot: %w", err))
				break
			}
			p.graph.Replace(snapshot.Snapshot[pump.Graph]{Data: *graph, Raw: snap.Raw, FetchedAt: snap.FetchedAt})
			p.logger.InfoContext(ctx, "restored graph snapshot", xslog.UpdatedAt(snap.FetchedAt))
		}
	}

	return errors.Join(errs...)
}
