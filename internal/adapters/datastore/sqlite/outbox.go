package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
)

const jobColumns = `id, type, payload, status, attempts, next_attempt_at, locked_until, last_error, created_at, updated_at`

func scanJob(row scanner) (outbox.Job, error) {
	var (
		j                         outbox.Job
		payload, status           string
		next, locked, created, up int64
	)
	if err := row.Scan(&j.ID, &j.Type, &payload, &status, &j.Attempts, &next, &locked, &j.LastError, &created, &up); err != nil {
		return outbox.Job{}, err
	}
	j.Payload = json.RawMessage(payload)
	j.Status = outbox.Status(status)
	j.NextAttemptAt = fromNanos(next)
	j.LockedUntil = fromNanos(locked)
	j.CreatedAt = fromNanos(created)
	j.UpdatedAt = fromNanos(up)
	return j, nil
}

func collectJobs(rows *sql.Rows) ([]outbox.Job, error) {
	defer func() { _ = rows.Close() }()
	var out []outbox.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Enqueue stores a pending job due now.
func (s *Store) Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (outbox.Job, error) {
	if jobType == "" {
		return outbox.Job{}, fmt.Errorf("%w: empty type", outbox.ErrInvalidJob)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage(`{}`)
	}
	now := s.now().UTC()
	j := outbox.Job{
		ID:            uuid.NewString(),
		Type:          jobType,
		Payload:       payload,
		Status:        outbox.StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, 0, ?, 0, '', ?, ?)`,
		j.ID, j.Type, string(j.Payload), string(j.Status), now.UnixNano(), now.UnixNano(), now.UnixNano())
	if err != nil {
		return outbox.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return j, nil
}

// Claim leases up to limit due jobs and counts the attempt.
func (s *Store) Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]outbox.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n := now.UnixNano()
	rows, err := tx.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM outbox_jobs
		 WHERE status = ? AND next_attempt_at <= ? AND locked_until <= ?
		 ORDER BY next_attempt_at ASC, id ASC LIMIT ?`,
		string(outbox.StatusPending), n, n, limit)
	if err != nil {
		return nil, fmt.Errorf("claim: select: %w", err)
	}
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}

	until := now.Add(lease)
	for i := range jobs {
		jobs[i].Attempts++
		jobs[i].LockedUntil = until
		jobs[i].UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox_jobs SET attempts = ?, locked_until = ?, updated_at = ? WHERE id = ?`,
			jobs[i].Attempts, until.UnixNano(), n, jobs[i].ID); err != nil {
			return nil, fmt.Errorf("claim: lease %s: %w", jobs[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim: commit: %w", err)
	}
	return jobs, nil
}

// Complete marks a job done.
func (s *Store) Complete(ctx context.Context, id string) error {
	return s.updateJob(ctx, id,
		`UPDATE outbox_jobs SET status = ?, locked_until = 0, updated_at = ? WHERE id = ?`,
		string(outbox.StatusDone), s.now().UnixNano(), id)
}

// Retry releases the lease and schedules the next attempt.
func (s *Store) Retry(ctx context.Context, id string, next time.Time, cause string) error {
	return s.updateJob(ctx, id,
		`UPDATE outbox_jobs SET next_attempt_at = ?, locked_until = 0, last_error = ?, updated_at = ? WHERE id = ?`,
		next.UnixNano(), cause, s.now().UnixNano(), id)
}

// Bury marks a job dead.
func (s *Store) Bury(ctx context.Context, id string, cause string) error {
	return s.updateJob(ctx, id,
		`UPDATE outbox_jobs SET status = ?, locked_until = 0, last_error = ?, updated_at = ? WHERE id = ?`,
		string(outbox.StatusDead), cause, s.now().UnixNano(), id)
}

func (s *Store) updateJob(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", outbox.ErrJobNotFound, id)
	}
	return nil
}

// Dead lists dead jobs, newest first.
func (s *Store) Dead(ctx context.Context, limit int) ([]outbox.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM outbox_jobs WHERE status = ? ORDER BY updated_at DESC`
	args := []any{string(outbox.StatusDead)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dead jobs: %w", err)
	}
	return collectJobs(rows)
}

// Purge deletes done jobs last updated before cutoff.
func (s *Store) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM outbox_jobs WHERE status = ? AND updated_at < ?`,
		string(outbox.StatusDone), before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats counts jobs by state.
func (s *Store) Stats(ctx context.Context) (outbox.Stats, error) {
	var st outbox.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' AND locked_until > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'dead' THEN 1 ELSE 0 END), 0)
		 FROM outbox_jobs`, s.now().UnixNano()).Scan(&st.Pending, &st.InFlight, &st.Done, &st.Dead)
	if err != nil {
		return outbox.Stats{}, fmt.Errorf("outbox stats: %w", err)
	}
	return st, nil
}
