// Package gateway is the single write path for reflections: a bounded
// primary save followed by best-effort background side writes.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/pkg/logger"
	"github.com/okian/interpretreflect/pkg/metrics"
)

const defaultTimeout = 5 * time.Second

// ReflectionWriter performs the primary save.
type ReflectionWriter interface {
	InsertReflection(ctx context.Context, in datastore.NewReflection) (model.Entry, error)
}

// Enqueuer accepts background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (outbox.Job, error)
}

// Gateway saves reflections.
type Gateway struct {
	writer  ReflectionWriter
	jobs    Enqueuer
	timeout time.Duration
	now     func() time.Time
	notify  func()
	log     logger.Logger
}

// New builds a gateway. jobs may be nil, in which case no side writes are
// scheduled.
func New(writer ReflectionWriter, jobs Enqueuer, opts ...Option) *Gateway {
	g := &Gateway{
		writer:  writer,
		jobs:    jobs,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Get().Named("gateway")
	}
	return g
}

type insertResult struct {
	entry model.Entry
	err   error
}

// SaveReflection writes {user_id, entry_kind, data} and, once the write has
// succeeded, schedules wellness extraction and activity recording.
//
// Errors: ErrTimeout when the write outlives the timeout,
// auth.ErrSessionExpired when the store rejects the session, otherwise the
// store's own error.
func (g *Gateway) SaveReflection(ctx context.Context, userID string, kind model.Kind, data map[string]any) (model.Entry, error) {
	start := g.now()
	if userID == "" {
		metrics.RecordSaveFailure(string(kind), "unauthenticated")
		return model.Entry{}, auth.ErrUnauthenticated
	}
	if data == nil {
		data = map[string]any{}
	}

	wctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan insertResult, 1)
	go func() {
		e, err := g.writer.InsertReflection(wctx, datastore.NewReflection{UserID: userID, Kind: kind, Data: data})
		done <- insertResult{entry: e, err: err}
	}()

	var res insertResult
	select {
	case res = <-done:
	case <-wctx.Done():
		res = insertResult{err: wctx.Err()}
	}

	if res.err != nil {
		err := g.translate(ctx, res.err)
		metrics.RecordSaveFailure(string(kind), reason(err))
		g.log.Warn(ctx, "reflection save failed",
			logger.String("kind", string(kind)),
			logger.Duration("elapsed", g.now().Sub(start)),
			logger.Error(res.err))
		return model.Entry{}, err
	}

	metrics.RecordReflectionSaved(string(kind))
	metrics.RecordSaveLatency(float64(g.now().Sub(start).Milliseconds()))

	entry := res.entry
	if entry.UserID == "" {
		entry.UserID = userID
	}
	if entry.Kind == "" {
		entry.Kind = kind
	}
	if entry.Data == nil {
		entry.Data = data
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = start
	}

	g.scheduleSideWrites(ctx, entry)
	return entry, nil
}

func (g *Gateway) translate(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return auth.ErrSessionExpired
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return ErrTimeout
	case ctx.Err() != nil:
		return ctx.Err()
	}
	var se *datastore.StatusError
	if errors.As(err, &se) {
		return se
	}
	return err
}

func reason(err error) string {
	var se *datastore.StatusError
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, auth.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &se):
		return "rejected"
	default:
		return "store_error"
	}
}

// scheduleSideWrites enqueues background jobs. Failures are logged and
// counted only; the save has already succeeded.
func (g *Gateway) scheduleSideWrites(ctx context.Context, e model.Entry) { //nolint:gocritic // hugeParam
	if g.jobs == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	g.enqueue(ctx, JobWellnessExtract, ExtractJob{
		SaveID:  uuid.NewString(),
		UserID:  e.UserID,
		Kind:    e.Kind,
		Data:    e.Data,
		SavedAt: e.CreatedAt,
	})
	g.enqueue(ctx, JobActivityRecord, ActivityJob{
		UserID:  e.UserID,
		SavedAt: e.CreatedAt,
	})

	if g.notify != nil {
		g.notify()
	}
}

func (g *Gateway) enqueue(ctx context.Context, jobType string, payload any) {
	raw, err := json.Marshal(payload)
	if err == nil {
		_, err = g.jobs.Enqueue(ctx, jobType, raw)
	}
	if err != nil {
		metrics.RecordOutboxEnqueueError(jobType)
		g.log.Error(ctx, "failed to schedule background write",
			logger.String("type", jobType),
			logger.Error(err))
		return
	}
	metrics.RecordOutboxEnqueued(jobType)
}
