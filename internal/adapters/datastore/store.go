// Package datastore defines the persistence ports used by the reflection
// service and the errors adapters report through them.
package datastore

import (
	"context"
	"time"

	"github.com/okian/interpretreflect/internal/domain/model"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// NewReflection is the row written by the primary save.
type NewReflection struct {
	UserID string         `json:"user_id"`
	Kind   model.Kind     `json:"entry_kind"`
	Data   map[string]any `json:"data"`
}

// ListQuery filters a user's reflections. Zero Since and Limit mean no bound.
type ListQuery struct {
	UserID string
	Since  time.Time
	Limit  int
}

// ReflectionStore reads and writes reflection entries.
type ReflectionStore interface {
	InsertReflection(ctx context.Context, in NewReflection) (model.Entry, error)
	// ListReflections returns the user's entries newest first.
	ListReflections(ctx context.Context, q ListQuery) ([]model.Entry, error)
}

// WellnessStore keeps weekly snapshots and the anonymized audit trail.
type WellnessStore interface {
	GetSnapshot(ctx context.Context, userHash string, weekOf time.Time) (model.Snapshot, bool, error)
	UpsertSnapshot(ctx context.Context, s model.Snapshot) error
	// ListSnapshots returns snapshots from the week of since onwards, oldest first.
	ListSnapshots(ctx context.Context, userHash string, since time.Time) ([]model.Snapshot, error)
	HasAnonymizedRecord(ctx context.Context, recordHash string) (bool, error)
	InsertAnonymizedRecord(ctx context.Context, r model.AnonymizedRecord) error
}

// ActivityStore records days on which a user saved anything.
type ActivityStore interface {
	// RecordActivity marks day (by its calendar date) active. Recording the
	// same day twice is a no-op.
	RecordActivity(ctx context.Context, userID string, day time.Time) error
	// ActivityDays returns active days on or after since, newest first, as
	// UTC midnights of the recorded dates.
	ActivityDays(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}

// Store is a complete persistence backend.
type Store interface {
	ReflectionStore
	WellnessStore
	ActivityStore
	Close() error
}

// Date returns the calendar date of t as a UTC midnight.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
