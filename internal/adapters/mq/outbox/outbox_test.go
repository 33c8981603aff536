package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	Convey("Given a memory outbox", t, func() {
		now := start
		s := outbox.NewMemoryStore(outbox.WithClock(func() time.Time { return now }))

		Convey("When a job is enqueued", func() {
			j, err := s.Enqueue(ctx, "wellness.extract", json.RawMessage(`{"user_id":"u1"}`))
			So(err, ShouldBeNil)

			Convey("Then it is pending and due now", func() {
				So(j.ID, ShouldNotBeEmpty)
				So(j.Status, ShouldEqual, outbox.StatusPending)
				So(j.NextAttemptAt, ShouldEqual, now)
				st, _ := s.Stats(ctx)
				So(st.Pending, ShouldEqual, 1)
			})

			Convey("And claiming leases it and counts the attempt", func() {
				got, err := s.Claim(ctx, now, 10, time.Minute)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Attempts, ShouldEqual, 1)
				So(string(got[0].Payload), ShouldEqual, `{"user_id":"u1"}`)

				again, _ := s.Claim(ctx, now.Add(30*time.Second), 10, time.Minute)
				So(again, ShouldBeEmpty)
				st, _ := s.Stats(ctx)
				So(st.InFlight, ShouldEqual, 1)

				Convey("And an expired lease makes it claimable again", func() {
					later, _ := s.Claim(ctx, now.Add(2*time.Minute), 10, time.Minute)
					So(later, ShouldHaveLength, 1)
					So(later[0].Attempts, ShouldEqual, 2)
				})

				Convey("And a retry waits for its next attempt time", func() {
					So(s.Retry(ctx, j.ID, now.Add(10*time.Second), "boom"), ShouldBeNil)

					early, _ := s.Claim(ctx, now.Add(5*time.Second), 10, time.Minute)
					So(early, ShouldBeEmpty)
					due, _ := s.Claim(ctx, now.Add(10*time.Second), 10, time.Minute)
					So(due, ShouldHaveLength, 1)
					So(due[0].LastError, ShouldEqual, "boom")
				})

				Convey("And completing it removes it from the due set", func() {
					So(s.Complete(ctx, j.ID), ShouldBeNil)
					st, _ := s.Stats(ctx)
					So(st.Done, ShouldEqual, 1)
					So(st.Pending, ShouldEqual, 0)

					now = now.Add(time.Hour)
					n, err := s.Purge(ctx, now)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 1)
				})

				Convey("And burying it lists it as dead", func() {
					So(s.Bury(ctx, j.ID, "gave up"), ShouldBeNil)
					dead, _ := s.Dead(ctx, 10)
					So(dead, ShouldHaveLength, 1)
					So(dead[0].LastError, ShouldEqual, "gave up")
					more, _ := s.Claim(ctx, now.Add(time.Hour), 10, time.Minute)
					So(more, ShouldBeEmpty)
				})
			})
		})

		Convey("When more jobs are due than the limit", func() {
			for i := 0; i < 5; i++ {
				_, _ = s.Enqueue(ctx, "activity.record", json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
			}

			Convey("Then only limit jobs are claimed", func() {
				got, _ := s.Claim(ctx, now, 3, time.Minute)
				So(got, ShouldHaveLength, 3)
				rest, _ := s.Claim(ctx, now, 10, time.Minute)
				So(rest, ShouldHaveLength, 2)
			})
		})

		Convey("When a job has no type", func() {
			_, err := s.Enqueue(ctx, "", nil)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, outbox.ErrInvalidJob), ShouldBeTrue)
			})
		})

		Convey("When an unknown job is completed", func() {
			err := s.Complete(ctx, "missing")

			Convey("Then it is not found", func() {
				So(errors.Is(err, outbox.ErrJobNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestPolicy(t *testing.T) {
	Convey("Given a policy without jitter", t, func() {
		p := outbox.Policy{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2, MaxAttempts: 4}

		Convey("Then delays grow exponentially up to the cap", func() {
			So(p.Delay(1), ShouldEqual, time.Second)
			So(p.Delay(2), ShouldEqual, 2*time.Second)
			So(p.Delay(3), ShouldEqual, 4*time.Second)
			So(p.Delay(6), ShouldEqual, 10*time.Second)
		})

		Convey("And attempts are exhausted at the maximum", func() {
			So(p.Exhausted(3), ShouldBeFalse)
			So(p.Exhausted(4), ShouldBeTrue)
		})
	})

	Convey("Given the default policy", t, func() {
		p := outbox.DefaultPolicy()

		Convey("Then jittered delays stay within the randomization band", func() {
			for i := 0; i < 20; i++ {
				d := p.Delay(1)
				So(d, ShouldBeBetweenOrEqual, 500*time.Millisecond, 1500*time.Millisecond)
			}
		})
	})

	Convey("Given errors", t, func() {
		Convey("Then permanent ones are recognized through wrapping", func() {
			err := fmt.Errorf("handler: %w", outbox.Permanent(errors.New("bad payload")))
			So(outbox.IsPermanent(err), ShouldBeTrue)
			So(outbox.IsPermanent(errors.New("flaky")), ShouldBeFalse)
			So(outbox.Permanent(nil), ShouldBeNil)
		})
	})
}
