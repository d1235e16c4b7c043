package storage

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var _ Backend = (*MemoryBackend)(nil)

const limiterIdleTimeout = 10 * time.Minute

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type MemoryBackend struct {
	// Rate limiting
	limiters  map[string]*limiterEntry
	limiterMu sync.Mutex
	rateLimit rate.Limit
	rateBurst int

	// Snapshot mirror
	snapshots   map[SnapshotKind]Snapshot
	snapshotsMu sync.RWMutex

	// Cleanup
	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

func NewMemoryBackend(cfg RateLimitConfig) *MemoryBackend {
	return newMemoryBackend(cfg, time.Now)
}

func newMemoryBackend(cfg RateLimitConfig, now func() time.Time) *MemoryBackend {
	m := &MemoryBackend{
		limiters:  make(map[string]*limiterEntry),
		rateLimit: rate.Limit(cfg.Rate),
		rateBurst: cfg.Burst,
		snapshots: make(map[SnapshotKind]Snapshot),
		done:      make(chan struct{}),
		now:       now,
	}

	go m.cleanupLoop()

	return m
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Allow(_ context.Context, key string) (RateLimitResult, error) {
	now := m.now()

	m.limiterMu.Lock()
	entry, ok := m.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(m.rateLimit, m.rateBurst)}
		m.limiters[key] = entry
	}
	entry.lastAccess = now
	m.limiterMu.Unlock()

	r := entry.limiter.ReserveN(now, 1)
	if !r.OK() {
		return RateLimitResult{Allowed: false, RetryAfter: time.Second}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return RateLimitResult{Allowed: false, RetryAfter: delay}, nil
	}
	return RateLimitResult{Allowed: true}, nil
}

func (m *MemoryBackend) SaveSnapshot(_ context.Context, kind SnapshotKind, snap Snapshot) error {
	raw := make([]byte, len(snap.Raw))
	copy(raw, snap.Raw)
	snap.Raw = raw

	m.snapshotsMu.Lock()
	m.snapshots[kind] = snap
	m.snapshotsMu.Unlock()
	return nil
}

func (m *MemoryBackend) LoadSnapshot(_ context.Context, kind SnapshotKind) (Snapshot, error) {
	m.snapshotsMu.RLock()
	snap, ok := m.snapshots[kind]
	m.snapshotsMu.RUnlock()

	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (m *MemoryBackend) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryBackend) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryBackend) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle(m.now())
		case <-m.done:
			return
		}
	}
}

func (m *MemoryBackend) evictIdle(now time.Time) {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	for key, entry := range m.limiters {
		if now.Sub(entry.lastAccess) > limiterIdleTimeout {
			delete(m.limiters, key)
		}
	}
}
