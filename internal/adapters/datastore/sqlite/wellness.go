package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/domain/model"
)

const snapshotColumns = `user_hash, week_of, stress_level, energy_level, burnout_score, confidence_score,
	stress_samples, energy_samples, burnout_samples, confidence_samples,
	high_stress_pattern, recovery_needed, growth_trajectory, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (model.Snapshot, error) {
	var (
		snap    model.Snapshot
		week    string
		updated int64
	)
	err := row.Scan(&snap.UserHash, &week,
		&snap.StressLevel, &snap.EnergyLevel, &snap.BurnoutScore, &snap.ConfidenceScore,
		&snap.StressSamples, &snap.EnergySamples, &snap.BurnoutSamples, &snap.ConfidenceSamples,
		&snap.HighStressPattern, &snap.RecoveryNeeded, &snap.GrowthTrajectory, &updated)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.WeekOf, err = time.Parse(datastore.DateLayout, week)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("parse week_of %q: %w", week, err)
	}
	snap.UpdatedAt = fromNanos(updated)
	return snap, nil
}

// GetSnapshot loads the snapshot for one user and week.
func (s *Store) GetSnapshot(ctx context.Context, userHash string, weekOf time.Time) (snap model.Snapshot, ok bool, err error) {
	start := s.now()
	defer func() { s.observe("get_snapshot", start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM wellness_metrics WHERE user_hash = ? AND week_of = ?`,
		userHash, weekOf.Format(datastore.DateLayout))
	snap, err = scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, true, nil
}

// UpsertSnapshot writes snap, replacing the row for the same user and week.
func (s *Store) UpsertSnapshot(ctx context.Context, snap model.Snapshot) (err error) { //nolint:gocritic // hugeParam
	start := s.now()
	defer func() { s.observe("upsert_snapshot", start, err) }()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wellness_metrics (`+snapshotColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_hash, week_of) DO UPDATE SET
			stress_level = excluded.stress_level,
			energy_level = excluded.energy_level,
			burnout_score = excluded.burnout_score,
			confidence_score = excluded.confidence_score,
			stress_samples = excluded.stress_samples,
			energy_samples = excluded.energy_samples,
			burnout_samples = excluded.burnout_samples,
			confidence_samples = excluded.confidence_samples,
			high_stress_pattern = excluded.high_stress_pattern,
			recovery_needed = excluded.recovery_needed,
			growth_trajectory = excluded.growth_trajectory,
			updated_at = excluded.updated_at`,
		snap.UserHash, snap.WeekOf.Format(datastore.DateLayout),
		snap.StressLevel, snap.EnergyLevel, snap.BurnoutScore, snap.ConfidenceScore,
		snap.StressSamples, snap.EnergySamples, snap.BurnoutSamples, snap.ConfidenceSamples,
		snap.HighStressPattern, snap.RecoveryNeeded, snap.GrowthTrajectory, toNanos(snap.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshots from the week of since onwards, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, userHash string, since time.Time) (out []model.Snapshot, err error) {
	start := s.now()
	defer func() { s.observe("list_snapshots", start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM wellness_metrics
		 WHERE user_hash = ? AND week_of >= ? ORDER BY week_of ASC`,
		userHash, since.Format(datastore.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// HasAnonymizedRecord reports whether recordHash was written.
func (s *Store) HasAnonymizedRecord(ctx context.Context, recordHash string) (ok bool, err error) {
	start := s.now()
	defer func() { s.observe("has_anonymized", start, err) }()

	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM anonymized_reflections WHERE record_hash = ?`, recordHash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has anonymized record: %w", err)
	}
	return n > 0, nil
}

// InsertAnonymizedRecord appends r; a duplicate hash is ignored.
func (s *Store) InsertAnonymizedRecord(ctx context.Context, r model.AnonymizedRecord) (err error) { //nolint:gocritic // hugeParam
	start := s.now()
	defer func() { s.observe("insert_anonymized", start, err) }()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO anonymized_reflections
			(record_hash, user_hash, week_of, entry_kind, stress_level, energy_level, burnout_score, confidence_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RecordHash, r.UserHash, r.WeekOf.Format(datastore.DateLayout), string(r.Kind),
		nullable(r.Stress), nullable(r.Energy), nullable(r.Burnout), nullable(r.Confidence),
		toNanos(r.CreatedAt))
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert anonymized record: %w", err)
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
