// Package worker runs background outbox jobs on a pool of workers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/pkg/logger"
	"github.com/okian/interpretreflect/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultJobTimeout   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Handler runs one job. Returning an error wrapped with outbox.Permanent
// buries the job without further attempts.
type Handler func(ctx context.Context, j outbox.Job) error

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan outbox.Job
}

// Results records job outcomes.
type Results interface {
	Complete(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, next time.Time, cause string) error
	Bury(ctx context.Context, id string, cause string) error
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for jobs received from a Queue.
type InMemoryWorker struct {
	queue    Queue
	results  Results
	handlers map[string]Handler
	name     string

	policy     outbox.Policy
	jobTimeout time.Duration
	now        func() time.Time
	active     *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, results Results, handlers map[string]Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		results:    results,
		handlers:   handlers,
		name:       "worker",
		policy:     outbox.DefaultPolicy(),
		jobTimeout: defaultJobTimeout,
		now:        time.Now,
		active:     &atomic.Int64{},
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job and records its outcome. Outcomes are written even
// when ctx is being canceled so the job's state stays accurate.
func (w *InMemoryWorker) process(ctx context.Context, j outbox.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	fields := []logger.Field{
		logger.String("job_id", j.ID),
		logger.String("job_type", j.Type),
		logger.Int("attempt", j.Attempts),
	}
	record := context.WithoutCancel(ctx)

	h, ok := w.handlers[j.Type]
	if !ok {
		w.bury(record, j, "no handler for job type", fields)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err := h(jobCtx, j)
	cancel()

	if err == nil {
		if err := w.results.Complete(record, j.ID); err != nil {
			w.logger.Error(ctx, "failed to mark job done", append(fields, logger.Error(err))...)
			return
		}
		metrics.RecordOutboxCompleted(j.Type)
		w.logger.Debug(ctx, "job done", fields...)
		return
	}

	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", j.Type)
	fields = append(fields, logger.Error(err))

	if outbox.IsPermanent(err) || w.policy.Exhausted(j.Attempts) {
		w.bury(record, j, err.Error(), fields)
		return
	}

	delay := w.policy.Delay(j.Attempts)
	next := w.now().Add(delay)
	if rerr := w.results.Retry(record, j.ID, next, err.Error()); rerr != nil {
		w.logger.Error(ctx, "failed to reschedule job", append(fields, logger.String("retry_error", rerr.Error()))...)
		return
	}
	metrics.RecordOutboxRetry(j.Type)
	w.logger.Warn(ctx, "job failed, retrying",
		append(fields, logger.Duration("backoff", delay), logger.Time("next_attempt_at", next))...)
}

func (w *InMemoryWorker) bury(ctx context.Context, j outbox.Job, cause string, fields []logger.Field) { //nolint:gocritic // hugeParam
	if err := w.results.Bury(ctx, j.ID, cause); err != nil {
		w.logger.Error(ctx, "failed to bury job", append(fields, logger.String("bury_error", err.Error()))...)
		return
	}
	metrics.RecordOutboxDead(j.Type)
	w.logger.Error(ctx, "job is dead", append(fields, logger.String("cause", cause))...)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, queue Queue, results Results, handlers map[string]Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	active := &atomic.Int64{}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(queue, results, handlers, workerOpts...)
		w.active = active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue and waits for workers to finish their current
// job. Jobs left in the queue keep their lease and are claimed again later.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
