package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/pkg/logger"
	"github.com/okian/interpretreflect/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultPollInterval  = 500 * time.Millisecond
	defaultBatchSize     = 50
	defaultLease         = 2 * time.Minute
	defaultRetention     = 24 * time.Hour
	defaultPurgeInterval = 10 * time.Minute
)

// Feeder is the queue side the dispatcher writes to.
type Feeder interface {
	Enqueue(ctx context.Context, j outbox.Job) bool
	Free(ctx context.Context) int
}

// Dispatcher moves due jobs from the outbox into the worker queue.
type Dispatcher struct {
	store    outbox.Store
	queue    Feeder
	interval time.Duration
	batch    int
	lease    time.Duration

	retention time.Duration
	lastPurge time.Time

	now  func() time.Time
	wake chan struct{}
	done chan struct{}

	logger logger.Logger
}

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPollInterval sets how often the outbox is polled.
func WithPollInterval(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.interval = d
		}
	}
}

// WithBatchSize caps the jobs claimed per poll.
func WithBatchSize(n int) DispatcherOption {
	return func(ds *Dispatcher) {
		if n > 0 {
			ds.batch = n
		}
	}
}

// WithLease sets how long a claimed job is reserved for a worker.
func WithLease(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.lease = d
		}
	}
}

// WithRetention sets how long done jobs are kept.
func WithRetention(d time.Duration) DispatcherOption {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.retention = d
		}
	}
}

// WithDispatcherClock overrides the time source.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(ds *Dispatcher) {
		if now != nil {
			ds.now = now
		}
	}
}

// NewDispatcher creates a dispatcher over store feeding queue.
func NewDispatcher(store outbox.Store, queue Feeder, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		queue:     queue,
		interval:  defaultPollInterval,
		batch:     defaultBatchSize,
		lease:     defaultLease,
		retention: defaultRetention,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify asks the dispatcher to poll now instead of waiting for the next tick.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
		if _, err := d.Poll(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error(ctx, "outbox poll failed", logger.Error(err))
		}
	}
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Poll claims due jobs up to the free queue capacity and hands them to the
// queue. It returns the number of jobs handed over.
func (d *Dispatcher) Poll(ctx context.Context) (int, error) {
	now := d.now()
	d.purge(ctx, now)

	limit := min(d.batch, d.queue.Free(ctx))
	sent := 0
	if limit > 0 {
		jobs, err := d.store.Claim(ctx, now, limit, d.lease)
		if err != nil {
			metrics.RecordErrorByComponent("dispatcher", "claim")
			return 0, fmt.Errorf("claim jobs: %w", err)
		}
		for _, j := range jobs {
			if !d.queue.Enqueue(ctx, j) {
				d.logger.Warn(ctx, "queue rejected claimed job; it runs again after its lease",
					logger.String("job_id", j.ID), logger.String("job_type", j.Type))
				continue
			}
			sent++
		}
	}

	if st, err := d.store.Stats(ctx); err == nil {
		metrics.UpdateOutboxDepth(st.Pending, st.Dead)
	}
	return sent, nil
}

func (d *Dispatcher) purge(ctx context.Context, now time.Time) {
	if now.Sub(d.lastPurge) < defaultPurgeInterval {
		return
	}
	d.lastPurge = now
	n, err := d.store.Purge(ctx, now.Add(-d.retention))
	if err != nil {
		d.logger.Warn(ctx, "outbox purge failed", logger.Error(err))
		return
	}
	if n > 0 {
		d.logger.Debug(ctx, "purged done jobs", logger.Int("count", n))
	}
}
