package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/interpretreflect/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is submitted twice", func() {
			first := d.SeenAndRecord(ctx, "user-1", "submit-1")
			second := d.SeenAndRecord(ctx, "user-1", "submit-1")

			Convey("Then only the second is a duplicate", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When two users share a key", func() {
			So(d.SeenAndRecord(ctx, "user-1", "submit-1"), ShouldBeFalse)

			Convey("Then keys are scoped per user", func() {
				So(d.SeenAndRecord(ctx, "user-2", "submit-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When a key is unrecorded after a failed save", func() {
			d.SeenAndRecord(ctx, "user-1", "submit-1")
			d.Unrecord(ctx, "user-1", "submit-1")

			Convey("Then it can be submitted again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "user-1", "submit-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown key is unrecorded", func() {
			d.Unrecord(ctx, "nobody", "nothing")

			Convey("Then nothing happens", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When more keys than the bound are recorded", func() {
			for i := 0; i < 4; i++ {
				d.SeenAndRecord(ctx, "u", fmt.Sprintf("k%d", i))
			}

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "u", "k3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "u", "k0"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a deduper with a ttl", t, func() {
		now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
		d := dedupe.NewInMemoryDeduper(
			dedupe.WithTTL(time.Minute),
			dedupe.WithClock(func() time.Time { return now }),
		)
		d.SeenAndRecord(ctx, "u", "k")

		Convey("When the ttl has not passed", func() {
			now = now.Add(30 * time.Second)

			Convey("Then the key is still a duplicate", func() {
				So(d.SeenAndRecord(ctx, "u", "k"), ShouldBeTrue)
			})
		})

		Convey("When the ttl has passed", func() {
			now = now.Add(2 * time.Minute)

			Convey("Then the key is accepted again", func() {
				So(d.SeenAndRecord(ctx, "u", "k"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given concurrent submissions of one key", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "u", "double-click") {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one is accepted", func() {
			So(fresh, ShouldEqual, 1)
		})
	})
}
