package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerInit(t *testing.T) {
	convey.Convey("Given the global logger", t, func() {
		convey.So(Init(), convey.ShouldBeNil)

		convey.Convey("Then Get returns an instance", func() {
			convey.So(Get(), convey.ShouldNotBeNil)
			convey.So(Named("test"), convey.ShouldNotBeNil)
		})

		convey.Convey("And Sync does not fail on stdout", func() {
			convey.So(Sync(), convey.ShouldBeNil)
		})
	})
}

func TestLoggerFields(t *testing.T) {
	convey.Convey("Given a logger backed by an observer core", t, func() {
		core, logs := observer.New(zapcore.DebugLevel)
		l := New(zap.New(core)).Named("gateway")
		ctx := context.Background()

		convey.Convey("When logging with structured fields", func() {
			l.Warn(ctx, "side write failed",
				String("kind", "wellness_checkin"),
				Int("attempt", 2),
				Bool("dead", false),
				Error(errors.New("boom")),
			)

			convey.Convey("Then the entry carries every field", func() {
				convey.So(logs.Len(), convey.ShouldEqual, 1)
				entry := logs.All()[0]
				convey.So(entry.LoggerName, convey.ShouldEqual, "gateway")
				fields := entry.ContextMap()
				convey.So(fields["kind"], convey.ShouldEqual, "wellness_checkin")
				convey.So(fields["attempt"], convey.ShouldEqual, int64(2))
				convey.So(fields["dead"], convey.ShouldEqual, false)
				convey.So(fields["error"], convey.ShouldEqual, "boom")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	convey.Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "ERROR"} {
			convey.So(SetLevelString(lvl), convey.ShouldBeNil)
		}
		convey.So(SetLevelString("loud"), convey.ShouldNotBeNil)
		_ = SetLevelString("info")
	})
}
