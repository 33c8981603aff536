package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/domain/model"
)

// InsertReflection stores in with a new id.
func (s *Store) InsertReflection(ctx context.Context, in datastore.NewReflection) (e model.Entry, err error) {
	start := s.now()
	defer func() { s.observe("insert_reflection", start, err) }()

	if in.UserID == "" {
		return model.Entry{}, fmt.Errorf("%w: user id is required", datastore.ErrInvalidQuery)
	}
	data := in.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return model.Entry{}, fmt.Errorf("encode data: %w", err)
	}

	now := s.now().UTC()
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reflection_entries (id, user_id, entry_kind, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.UserID, string(in.Kind), string(raw), now.UnixNano(), now.UnixNano())
	if err != nil {
		return model.Entry{}, fmt.Errorf("insert reflection: %w", err)
	}
	return model.Entry{
		ID:        id,
		UserID:    in.UserID,
		Kind:      in.Kind,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ListReflections returns the user's entries newest first.
func (s *Store) ListReflections(ctx context.Context, q datastore.ListQuery) (out []model.Entry, err error) {
	start := s.now()
	defer func() { s.observe("list_reflections", start, err) }()

	if q.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", datastore.ErrInvalidQuery)
	}
	query := `SELECT id, user_id, entry_kind, data, created_at, updated_at
		FROM reflection_entries WHERE user_id = ?`
	args := []any{q.UserID}
	if !q.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, q.Since.UnixNano())
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out = []model.Entry{}
	for rows.Next() {
		var (
			e                model.Entry
			kind, raw        string
			created, updated int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &raw, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan reflection: %w", err)
		}
		e.Kind = model.Kind(kind)
		e.CreatedAt = fromNanos(created)
		e.UpdatedAt = fromNanos(updated)
		if err := json.Unmarshal([]byte(raw), &e.Data); err != nil || e.Data == nil {
			e.Data = map[string]any{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordActivity marks the calendar date of day active.
func (s *Store) RecordActivity(ctx context.Context, userID string, day time.Time) (err error) {
	start := s.now()
	defer func() { s.observe("record_activity", start, err) }()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_activity (user_id, activity_date) VALUES (?, ?)`,
		userID, day.Format(datastore.DateLayout))
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// ActivityDays returns active dates on or after since, newest first.
func (s *Store) ActivityDays(ctx context.Context, userID string, since time.Time) (out []time.Time, err error) {
	start := s.now()
	defer func() { s.observe("activity_days", start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_date FROM daily_activity
		 WHERE user_id = ? AND activity_date >= ?
		 ORDER BY activity_date DESC`,
		userID, since.Format(datastore.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("activity days: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		t, err := time.Parse(datastore.DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("parse activity_date %q: %w", d, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
