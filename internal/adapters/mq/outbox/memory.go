package outbox

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. Jobs are lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Enqueue(_ context.Context, jobType string, payload json.RawMessage) (Job, error) {
	if jobType == "" {
		return Job{}, fmt.Errorf("%w: empty type", ErrInvalidJob)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage(`{}`)
	}
	now := s.now()
	j := &Job{
		ID:            uuid.NewString(),
		Type:          jobType,
		Payload:       slices.Clone(payload),
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	return *j, nil
}

func (s *MemoryStore) Claim(_ context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*Job, 0, limit)
	for _, j := range s.jobs {
		if j.Status == StatusPending && !j.NextAttemptAt.After(now) && !j.LockedUntil.After(now) {
			due = append(due, j)
		}
	}
	slices.SortFunc(due, func(a, b *Job) int {
		if c := a.NextAttemptAt.Compare(b.NextAttemptAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]Job, 0, len(due))
	for _, j := range due {
		j.Attempts++
		j.LockedUntil = now.Add(lease)
		j.UpdatedAt = now
		out = append(out, *j)
	}
	return out, nil
}

func (s *MemoryStore) Complete(_ context.Context, id string) error {
	return s.update(id, func(j *Job) {
		j.Status = StatusDone
		j.LockedUntil = time.Time{}
	})
}

func (s *MemoryStore) Retry(_ context.Context, id string, next time.Time, cause string) error {
	return s.update(id, func(j *Job) {
		j.NextAttemptAt = next
		j.LockedUntil = time.Time{}
		j.LastError = cause
	})
}

func (s *MemoryStore) Bury(_ context.Context, id string, cause string) error {
	return s.update(id, func(j *Job) {
		j.Status = StatusDead
		j.LockedUntil = time.Time{}
		j.LastError = cause
	})
}

func (s *MemoryStore) update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	fn(j)
	j.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Dead(_ context.Context, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Job
	for _, j := range s.jobs {
		if j.Status == StatusDead {
			out = append(out, *j)
		}
	}
	slices.SortFunc(out, func(a, b Job) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, j := range s.jobs {
		if j.Status == StatusDone && j.UpdatedAt.Before(before) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var st Stats
	for _, j := range s.jobs {
		switch j.Status {
		case StatusPending:
			st.Pending++
			if j.LockedUntil.After(now) {
				st.InFlight++
			}
		case StatusDone:
			st.Done++
		case StatusDead:
			st.Dead++
		}
	}
	return st, nil
}
