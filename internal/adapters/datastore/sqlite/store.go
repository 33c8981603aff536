// Package sqlite is the local data store: reflections, wellness snapshots,
// activity days and the durable outbox in one SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/pkg/metrics"
)

// Store implements datastore.Store and outbox.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ datastore.Store = (*Store)(nil)
	_ outbox.Store    = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New opens (creating if needed) the database at path and migrates it.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", datastore.ErrInvalidQuery)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS reflection_entries (
			id         TEXT    PRIMARY KEY,
			user_id    TEXT    NOT NULL,
			entry_kind TEXT    NOT NULL,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reflections_user_created
			ON reflection_entries (user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS wellness_metrics (
			user_hash           TEXT    NOT NULL,
			week_of             TEXT    NOT NULL,
			stress_level        REAL    NOT NULL DEFAULT 0,
			energy_level        REAL    NOT NULL DEFAULT 0,
			burnout_score       REAL    NOT NULL DEFAULT 0,
			confidence_score    REAL    NOT NULL DEFAULT 0,
			stress_samples      INTEGER NOT NULL DEFAULT 0,
			energy_samples      INTEGER NOT NULL DEFAULT 0,
			burnout_samples     INTEGER NOT NULL DEFAULT 0,
			confidence_samples  INTEGER NOT NULL DEFAULT 0,
			high_stress_pattern INTEGER NOT NULL DEFAULT 0,
			recovery_needed     INTEGER NOT NULL DEFAULT 0,
			growth_trajectory   INTEGER NOT NULL DEFAULT 0,
			updated_at          INTEGER NOT NULL,
			PRIMARY KEY (user_hash, week_of)
		);

		CREATE TABLE IF NOT EXISTS anonymized_reflections (
			record_hash      TEXT    PRIMARY KEY,
			user_hash        TEXT    NOT NULL,
			week_of          TEXT    NOT NULL,
			entry_kind       TEXT    NOT NULL,
			stress_level     REAL,
			energy_level     REAL,
			burnout_score    REAL,
			confidence_score REAL,
			created_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS daily_activity (
			user_id       TEXT NOT NULL,
			activity_date TEXT NOT NULL,
			PRIMARY KEY (user_id, activity_date)
		);

		CREATE TABLE IF NOT EXISTS outbox_jobs (
			id              TEXT    PRIMARY KEY,
			type            TEXT    NOT NULL,
			payload         TEXT    NOT NULL,
			status          TEXT    NOT NULL,
			attempts        INTEGER NOT NULL DEFAULT 0,
			next_attempt_at INTEGER NOT NULL,
			locked_until    INTEGER NOT NULL DEFAULT 0,
			last_error      TEXT    NOT NULL DEFAULT '',
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_outbox_due
			ON outbox_jobs (status, next_attempt_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// observe records the latency of one store operation.
func (s *Store) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordStoreLatency(op, outcome, float64(s.now().Sub(start).Milliseconds()))
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
