// Package outbox persists background jobs so side writes survive failures
// and are retried with backoff until they succeed or are declared dead.
package outbox

import (
	"context"
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

// Job states.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusDead    Status = "dead"
)

// Job is one unit of background work.
type Job struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LockedUntil   time.Time       `json:"locked_until,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Stats counts jobs by state. InFlight is the subset of Pending currently
// leased by a worker.
type Stats struct {
	Pending  int `json:"pending"`
	InFlight int `json:"in_flight"`
	Done     int `json:"done"`
	Dead     int `json:"dead"`
}

// Store is durable job storage.
type Store interface {
	// Enqueue stores a new pending job due immediately.
	Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (Job, error)

	// Claim leases up to limit due jobs until now+lease and counts the
	// attempt. A job whose lease runs out is claimable again.
	Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error)

	// Complete marks a job done.
	Complete(ctx context.Context, id string) error

	// Retry releases the lease and schedules the next attempt.
	Retry(ctx context.Context, id string, next time.Time, cause string) error

	// Bury marks a job dead; it will not run again.
	Bury(ctx context.Context, id string, cause string) error

	// Dead lists dead jobs, newest first.
	Dead(ctx context.Context, limit int) ([]Job, error)

	// Purge deletes done jobs last updated before cutoff.
	Purge(ctx context.Context, before time.Time) (int, error)

	Stats(ctx context.Context) (Stats, error)
}
