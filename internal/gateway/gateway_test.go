package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/gateway"
	"github.com/okian/interpretreflect/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type writerFunc func(ctx context.Context, in datastore.NewReflection) (model.Entry, error)

func (f writerFunc) InsertReflection(ctx context.Context, in datastore.NewReflection) (model.Entry, error) {
	return f(ctx, in)
}

type failingEnqueuer struct{}

func (failingEnqueuer) Enqueue(context.Context, string, json.RawMessage) (outbox.Job, error) {
	return outbox.Job{}, errors.New("outbox unavailable")
}

type recordingWriter struct {
	mu   sync.Mutex
	rows []datastore.NewReflection
}

func (w *recordingWriter) InsertReflection(_ context.Context, in datastore.NewReflection) (model.Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, in)
	return model.Entry{
		ID:        fmt.Sprintf("e%d", len(w.rows)),
		UserID:    in.UserID,
		Kind:      in.Kind,
		Data:      in.Data,
		CreatedAt: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC),
	}, nil
}

func TestSaveReflection(t *testing.T) {
	Convey("Given a gateway over a working store and outbox", t, func() {
		w := &recordingWriter{}
		jobs := outbox.NewMemoryStore()
		notified := 0
		g := gateway.New(w, jobs, gateway.WithNotify(func() { notified++ }))
		ctx := context.Background()

		Convey("When a reflection is saved", func() {
			e, err := g.SaveReflection(ctx, "u1", model.KindCompassCheck, map[string]any{"moralDistressLevel": 10})

			Convey("Then exactly user_id, entry_kind and data are written", func() {
				So(err, ShouldBeNil)
				So(e.ID, ShouldEqual, "e1")
				So(w.rows, ShouldHaveLength, 1)
				raw, _ := json.Marshal(w.rows[0])
				var row map[string]any
				So(json.Unmarshal(raw, &row), ShouldBeNil)
				So(row, ShouldContainKey, "user_id")
				So(row, ShouldContainKey, "entry_kind")
				So(row, ShouldContainKey, "data")
				So(len(row), ShouldEqual, 3)
			})

			Convey("And both side jobs are enqueued and the dispatcher notified", func() {
				claimed, err := jobs.Claim(ctx, time.Now().Add(time.Second), 10, time.Minute)
				So(err, ShouldBeNil)
				So(claimed, ShouldHaveLength, 2)
				types := map[string]bool{}
				for _, j := range claimed {
					types[j.Type] = true
				}
				So(types[gateway.JobWellnessExtract], ShouldBeTrue)
				So(types[gateway.JobActivityRecord], ShouldBeTrue)
				So(notified, ShouldEqual, 1)

				for _, j := range claimed {
					if j.Type != gateway.JobWellnessExtract {
						continue
					}
					var p gateway.ExtractJob
					So(json.Unmarshal(j.Payload, &p), ShouldBeNil)
					So(p.UserID, ShouldEqual, "u1")
					So(p.SaveID, ShouldNotBeEmpty)
					So(p.Kind, ShouldEqual, model.KindCompassCheck)
				}
			})
		})

		Convey("When there is no user", func() {
			_, err := g.SaveReflection(ctx, "", model.KindCompassCheck, nil)

			Convey("Then it is unauthenticated and nothing is written", func() {
				So(errors.Is(err, auth.ErrUnauthenticated), ShouldBeTrue)
				So(w.rows, ShouldBeEmpty)
			})
		})
	})
}

func TestSaveReflectionFailures(t *testing.T) {
	Convey("Given a store that never answers", t, func() {
		release := make(chan struct{})
		defer close(release)
		blocked := writerFunc(func(context.Context, datastore.NewReflection) (model.Entry, error) {
			<-release
			return model.Entry{}, nil
		})
		g := gateway.New(blocked, outbox.NewMemoryStore(), gateway.WithTimeout(50*time.Millisecond))

		Convey("Then the save times out within the configured bound", func() {
			start := time.Now()
			_, err := g.SaveReflection(context.Background(), "u1", model.KindWellnessCheckIn, nil)
			So(errors.Is(err, gateway.ErrTimeout), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "request timed out")
			So(time.Since(start), ShouldBeLessThan, time.Second)
		})
	})

	Convey("Given a store that reports the session expired", t, func() {
		g := gateway.New(writerFunc(func(context.Context, datastore.NewReflection) (model.Entry, error) {
			return model.Entry{}, fmt.Errorf("insert_reflection: %w", auth.ErrSessionExpired)
		}), nil)

		Convey("Then the session error is surfaced as is", func() {
			_, err := g.SaveReflection(context.Background(), "u1", model.KindWellnessCheckIn, nil)
			So(err, ShouldEqual, auth.ErrSessionExpired)
			So(err.Error(), ShouldEqual, "session expired, please refresh")
		})
	})

	Convey("Given a store that rejects the row", t, func() {
		g := gateway.New(writerFunc(func(context.Context, datastore.NewReflection) (model.Entry, error) {
			return model.Entry{}, fmt.Errorf("insert_reflection: %w",
				&datastore.StatusError{Status: 400, Body: `null value in column "entry_kind"`})
		}), nil)

		Convey("Then the store's message is returned unchanged", func() {
			_, err := g.SaveReflection(context.Background(), "u1", model.KindWellnessCheckIn, nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldEqual, `null value in column "entry_kind"`)
		})
	})

	Convey("Given an outbox that always fails", t, func() {
		w := &recordingWriter{}
		g := gateway.New(w, failingEnqueuer{})

		Convey("Then the save still succeeds", func() {
			e, err := g.SaveReflection(context.Background(), "u1", model.KindValuesAlignment, map[string]any{})
			So(err, ShouldBeNil)
			So(e.Kind, ShouldEqual, model.KindValuesAlignment)
			So(w.rows, ShouldHaveLength, 1)
		})
	})
}
