package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	service "github.com/okian/interpretreflect/internal/app"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/config"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/pkg/logger"
	"github.com/okian/interpretreflect/pkg/metrics"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.New()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "reflect.db")
	cfg.WorkerCount = 2
	cfg.OutboxPollIntervalMS = 20
	cfg.UserHashSalt = "test-salt"
	cfg.JWTSecret = "test-secret"
	return cfg
}

func duplicateTotal() float64 {
	mfs, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, mf := range mfs {
		if mf.GetName() == "interpretreflect_reflections_duplicate_submissions_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc := service.New(service.WithConfig(testConfig(t)))

		Convey("Then writes are refused and reads are empty", func() {
			_, err := svc.SubmitReflection(context.Background(), "compass_check", nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Reflections(context.Background(), 10, 0), ShouldBeEmpty)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})
	})

	Convey("Given a sqlite service without a token secret", t, func() {
		cfg := testConfig(t)
		cfg.JWTSecret = ""
		svc := service.New(service.WithConfig(cfg))

		Convey("Then it refuses to start", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldBeFalse)
		})

		Convey("Then the development flag lets it start", func() {
			cfg.InsecureSkipVerify = true
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
		})
	})

	Convey("Given a started service", t, func() {
		svc := service.New(service.WithConfig(testConfig(t)))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then starting again is a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
		})

		Convey("Then stats report the running components", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats, ShouldContainKey, "outbox")
		})
	})
}

func TestService_SubmitReflection(t *testing.T) {
	Convey("Given a started service and a signed-in user", t, func() {
		svc := service.New(service.WithConfig(testConfig(t)))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		ctx := auth.WithSession(context.Background(), auth.Session{UserID: "u1"})

		Convey("When a compass check is submitted", func() {
			fields := json.RawMessage(`{"situation":"court interpreting","weightLevel":"crushing","affecting":"sleep","needsSupport":true}`)
			sub, err := svc.SubmitReflection(ctx, "compass_check", fields)

			Convey("Then it is scored and saved", func() {
				So(err, ShouldBeNil)
				So(sub.ID, ShouldNotBeEmpty)
				So(sub.Kind, ShouldEqual, model.KindCompassCheck)
				So(sub.Data["moralDistressLevel"], ShouldEqual, 10)
				So(sub.Data["residueIntensity"], ShouldEqual, 8)

				list := svc.Reflections(ctx, 10, 0)
				So(list, ShouldHaveLength, 1)
				So(list[0].Kind, ShouldEqual, model.KindCompassCheck)
			})

			Convey("Then background writes update activity and the weekly snapshot", func() {
				So(err, ShouldBeNil)
				So(eventually(func() bool { return svc.ActivityStreak(ctx) == 1 }), ShouldBeTrue)
				So(eventually(func() bool { return len(svc.WellnessTrend(ctx, 4)) == 1 }), ShouldBeTrue)
				trend := svc.WellnessTrend(ctx, 4)
				So(trend[0].StressLevel, ShouldAlmostEqual, 10.0)

				stats := svc.ReflectionStats(ctx)
				So(stats.Total, ShouldEqual, 1)
				So(stats.CurrentStreak, ShouldEqual, 1)
			})
		})

		Convey("When the kind tag is malformed", func() {
			_, err := svc.SubmitReflection(ctx, "Compass Check!", nil)

			Convey("Then it is rejected before saving", func() {
				So(errors.Is(err, model.ErrInvalidKind), ShouldBeTrue)
				So(svc.Reflections(ctx, 10, 0), ShouldBeEmpty)
			})
		})

		Convey("When the fields do not match the form", func() {
			_, err := svc.SubmitReflection(ctx, "wellness_checkin", json.RawMessage(`{"stressLevel":"high"}`))

			Convey("Then the payload is invalid", func() {
				So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)
			})
		})

		Convey("When an unknown form is submitted", func() {
			sub, err := svc.SubmitReflection(ctx, "gratitude_note", json.RawMessage(`{"note":"thanks"}`))

			Convey("Then its fields are stored as given", func() {
				So(err, ShouldBeNil)
				So(sub.Data["note"], ShouldEqual, "thanks")
			})
		})

		Convey("When there is no session", func() {
			_, err := svc.SubmitReflection(context.Background(), "compass_check", nil)

			Convey("Then the caller must sign in", func() {
				So(errors.Is(err, auth.ErrUnauthenticated), ShouldBeTrue)
			})
		})
	})
}

func TestService_PreviewScores(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New()

		Convey("Then scores can be previewed without starting it", func() {
			rec, err := svc.PreviewScores(context.Background(), "wellness_checkin",
				json.RawMessage(`{"stressLevel":8,"energyLevel":4,"sleepQuality":"poor"}`))
			So(err, ShouldBeNil)
			So(rec.Kind, ShouldEqual, model.KindWellnessCheckIn)
			So(rec.Data["burnoutRisk"], ShouldEqual, "high")
		})
	})
}

func TestService_Dedupe(t *testing.T) {
	Convey("Given a started service", t, func() {
		cfg := testConfig(t)
		cfg.OutboxDriver = config.DriverMemory
		svc := service.New(service.WithConfig(cfg), service.WithOutbox(outbox.NewMemoryStore()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		ctx := context.Background()

		Convey("Then a submission key is seen once per user", func() {
			before := duplicateTotal()
			So(svc.SeenAndRecord(ctx, "u1", "k1"), ShouldBeFalse)
			So(svc.SeenAndRecord(ctx, "u1", "k1"), ShouldBeTrue)
			So(svc.SeenAndRecord(ctx, "u2", "k1"), ShouldBeFalse)
			svc.Unrecord(ctx, "u1", "k1")
			So(svc.SeenAndRecord(ctx, "u1", "k1"), ShouldBeFalse)
			So(svc.Size(), ShouldEqual, 2)
			So(duplicateTotal()-before, ShouldEqual, 1)
		})
	})
}
