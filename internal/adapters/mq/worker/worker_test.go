package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/internal/adapters/mq/queue"
	"github.com/okian/interpretreflect/internal/adapters/mq/worker"
	logging "github.com/okian/interpretreflect/pkg/logger"
)

type chanQueue chan outbox.Job

func (q chanQueue) Dequeue(context.Context) <-chan outbox.Job { return q }

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func stats(s outbox.Store) outbox.Stats {
	st, _ := s.Stats(context.Background())
	return st
}

// runOne claims the single pending job and runs it through one worker.
func runOne(ctx context.Context, store *outbox.MemoryStore, handlers map[string]worker.Handler, opts ...worker.Option) outbox.Job {
	jobs, _ := store.Claim(ctx, time.Now(), 1, time.Minute)
	q := make(chanQueue, 1)
	w := worker.NewInMemoryWorker(q, store, handlers, opts...)
	go w.Run(ctx)
	q <- jobs[0]
	return jobs[0]
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a memory outbox", t, func() {
		_ = logging.Init()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := outbox.NewMemoryStore()
		_, err := store.Enqueue(ctx, "wellness.extract", json.RawMessage(`{"user_id":"u1"}`))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the handler succeeds", func() {
			var got outbox.Job
			runOne(ctx, store, map[string]worker.Handler{
				"wellness.extract": func(_ context.Context, j outbox.Job) error {
					got = j
					return nil
				},
			})

			convey.Convey("Then the job is done", func() {
				convey.So(waitFor(func() bool { return stats(store).Done == 1 }), convey.ShouldBeTrue)
				convey.So(string(got.Payload), convey.ShouldEqual, `{"user_id":"u1"}`)
			})
		})

		convey.Convey("When the handler fails with attempts left", func() {
			now := time.Now().Add(-time.Hour)
			policy := outbox.Policy{Initial: time.Minute, Max: time.Hour, Multiplier: 2, MaxAttempts: 3}
			job := runOne(ctx, store, map[string]worker.Handler{
				"wellness.extract": func(context.Context, outbox.Job) error { return errors.New("store unavailable") },
			}, worker.WithPolicy(policy), worker.WithClock(func() time.Time { return now }))

			convey.Convey("Then it is rescheduled with backoff", func() {
				convey.So(waitFor(func() bool {
					due, _ := store.Claim(ctx, now.Add(time.Minute), 1, time.Minute)
					return len(due) == 1 && due[0].ID == job.ID && due[0].LastError == "store unavailable"
				}), convey.ShouldBeTrue)
				convey.So(stats(store).Dead, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the handler fails on the last attempt", func() {
			policy := outbox.Policy{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1, MaxAttempts: 1}
			runOne(ctx, store, map[string]worker.Handler{
				"wellness.extract": func(context.Context, outbox.Job) error { return errors.New("still down") },
			}, worker.WithPolicy(policy))

			convey.Convey("Then the job is dead", func() {
				convey.So(waitFor(func() bool { return stats(store).Dead == 1 }), convey.ShouldBeTrue)
				dead, _ := store.Dead(ctx, 1)
				convey.So(dead[0].LastError, convey.ShouldEqual, "still down")
			})
		})

		convey.Convey("When the handler reports a permanent failure", func() {
			runOne(ctx, store, map[string]worker.Handler{
				"wellness.extract": func(context.Context, outbox.Job) error {
					return outbox.Permanent(errors.New("bad payload"))
				},
			})

			convey.Convey("Then the job is buried at once", func() {
				convey.So(waitFor(func() bool { return stats(store).Dead == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no handler is registered for the type", func() {
			runOne(ctx, store, map[string]worker.Handler{})

			convey.Convey("Then the job is buried", func() {
				convey.So(waitFor(func() bool { return stats(store).Dead == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			q := make(chanQueue)
			w := worker.NewInMemoryWorker(q, store, nil)
			go w.Run(ctx)

			convey.Convey("Then it stops", func() {
				sctx, scancel := context.WithTimeout(context.Background(), time.Second)
				defer scancel()
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestDispatcherAndPool(t *testing.T) {
	convey.Convey("Given a pool fed by a dispatcher", t, func() {
		_ = logging.Init()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := outbox.NewMemoryStore()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))

		var calls atomic.Int32
		handlers := map[string]worker.Handler{
			"activity.record": func(context.Context, outbox.Job) error {
				if calls.Add(1) < 3 {
					return errors.New("flaky")
				}
				return nil
			},
		}
		policy := outbox.Policy{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2, MaxAttempts: 5}
		pool := worker.NewPool(2, q, store, handlers, worker.WithPolicy(policy))
		pool.Start(ctx)
		d := worker.NewDispatcher(store, q, worker.WithPollInterval(5*time.Millisecond))
		go d.Run(ctx)

		convey.Convey("When a flaky job is enqueued", func() {
			_, err := store.Enqueue(ctx, "activity.record", nil)
			convey.So(err, convey.ShouldBeNil)
			d.Notify()

			convey.Convey("Then it eventually completes after retries", func() {
				convey.So(waitFor(func() bool { return stats(store).Done == 1 }), convey.ShouldBeTrue)
				convey.So(calls.Load(), convey.ShouldEqual, 3)
				convey.So(pool.Size(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the queue has no room", func() {
			other := outbox.NewMemoryStore()
			full := queue.NewInMemoryQueue(queue.WithCapacity(1))
			full.Enqueue(ctx, outbox.Job{ID: "blocker"})
			_, _ = other.Enqueue(ctx, "activity.record", nil)
			idle := worker.NewDispatcher(other, full)

			convey.Convey("Then nothing is claimed", func() {
				n, err := idle.Poll(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 0)
				convey.So(stats(other).InFlight, convey.ShouldEqual, 0)
				convey.So(stats(other).Pending, convey.ShouldEqual, 1)
			})
		})

		convey.Reset(func() {
			cancel()
			_ = pool.Shutdown(context.Background())
		})
	})
}
