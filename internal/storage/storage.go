package storage

import (
	"context"
	"errors"
	"time"

	go_json "github.com/goccy/go-json"
)

var ErrNotFound = errors.New("snapshot not found")

type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

type SnapshotKind string

const (
	SnapshotTelemetry SnapshotKind = "telemetry"
	SnapshotGraph     SnapshotKind = "graph"
)

// Snapshot is a mirrored proxy document, stored as received.
type Snapshot struct {
	Raw       go_json.RawMessage `json:"raw"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// SnapshotStore mirrors the last good proxy documents so a restarted
// dashboard has something to show before its first poll completes.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, kind SnapshotKind, snap Snapshot) error

	// LoadSnapshot returns ErrNotFound if nothing has been mirrored for kind.
	LoadSnapshot(ctx context.Context, kind SnapshotKind) (Snapshot, error)
}

type Backend interface {
	RateLimiter
	SnapshotStore

	Name() string

	Close() error

	Ping(ctx context.Context) error
}

// RateLimitConfig is a token bucket: Rate requests per second on average with
// bursts of up to Burst.
type RateLimitConfig struct {
	Rate  float64
	Burst int
}

// window is the span in which Burst requests are allowed when the bucket is
// expressed as a sliding window.
func (c RateLimitConfig) window() time.Duration {
	if c.Rate <= 0 {
		return time.Second
	}
	return time.Duration(float64(c.Burst) / c.Rate * float64(time.Second))
}
