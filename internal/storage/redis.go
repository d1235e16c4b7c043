package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var _ Backend = (*RedisBackend)(nil)

const (
	rateLimitKeyPrefix = "minimon:ratelimit:"
	snapshotKeyPrefix  = "minimon:snapshot:"

	snapshotTTL = 24 * time.Hour
)

type RedisConfig struct {
	Client    *redis.Client
	RateLimit RateLimitConfig
}

type RedisBackend struct {
	client    *redis.Client
	rateLimit rateLimitParams
}

func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	window := cfg.RateLimit.window()
	return &RedisBackend{
		client: cfg.Client,
		rateLimit: rateLimitParams{
			window: window,
			limit:  cfg.RateLimit.Burst,
			ttl:    window + time.Second,
		},
	}
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	return runRateLimitScript(ctx, r.client, rateLimitKeyPrefix+key, r.rateLimit)
}

func (r *RedisBackend) SaveSnapshot(ctx context.Context, kind SnapshotKind, snap Snapshot) error {
	data, err := go_json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKeyPrefix+string(kind), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}

	return nil
}

func (r *RedisBackend) LoadSnapshot(ctx context.Context, kind SnapshotKind) (Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKeyPrefix+string(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap Snapshot
	if err := go_json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return snap, nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
