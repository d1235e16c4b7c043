// Package history keeps every distinct glucose sample seen in graph documents
// so the dashboard can chart further back than the vendor's 24 hour window.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/garrettladley/minimon/internal/migrations"
	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/xslog"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

type Sample struct {
	Timestamp  string    `db:"timestamp" json:"timestamp"`
	SampledAt  time.Time `db:"sampled_at" json:"sampled_at"`
	Value      int       `db:"value" json:"value"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

type Store struct {
	db     *sqlx.DB
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Store)

// WithLocation sets the zone vendor timestamps are read in. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	s := &Store{
		db:     db,
		loc:    time.Local,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores positive samples not seen before and returns how many were
// new. Samples with unreadable timestamps are skipped.
func (s *Store) Record(ctx context.Context, sgs []pump.SensorGlucose) (int, error) {
	recordedAt := s.now().UTC()

	rows := make([]Sample, 0, len(sgs))
	for _, sg := range sgs {
		value := sg.Value()
		if value <= 0 {
			continue
		}
		sampledAt, err := pump.ParseTimestamp(sg.Timestamp, s.loc)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping glucose sample",
				xslog.Timestamp(sg.Timestamp),
				xslog.Error(err))
			continue
		}
		rows = append(rows, Sample{
			Timestamp:  sg.Timestamp,
			SampledAt:  sampledAt.UTC(),
			Value:      value,
			RecordedAt: recordedAt,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insert = `INSERT OR IGNORE INTO glucose_samples (timestamp, sampled_at, value, recorded_at)
		VALUES (:timestamp, :sampled_at, :value, :recorded_at)`

	var inserted int
	for _, row := range rows {
		res, err := tx.NamedExecContext(ctx, insert, row)
		if err != nil {
			return 0, fmt.Errorf("failed to insert sample %s: %w", row.Timestamp, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count inserted rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit samples: %w", err)
	}
	return inserted, nil
}

// Since returns samples taken at or after since, oldest first.
func (s *Store) Since(ctx context.Context, since time.Time) ([]Sample, error) {
	samples := []Sample{}
	err := s.db.SelectContext(ctx, &samples,
		`SELECT timestamp, sampled_at, value, recorded_at
		FROM glucose_samples
		WHERE sampled_at >= ?
		ORDER BY sampled_at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	return samples, nil
}

// Prune deletes samples taken before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM glucose_samples WHERE sampled_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
