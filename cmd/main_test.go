package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/interpretreflect/internal/app"
	"github.com/okian/interpretreflect/internal/config"
	"github.com/okian/interpretreflect/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func signedToken(secret, userID string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return s
}

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("REFLECT_ADDR", ":8080")
		t.Setenv("REFLECT_WORKER_COUNT", "4")
		t.Setenv("REFLECT_JWT_SECRET", "test-secret")

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})

		convey.Convey("Then an empty address is rejected", func() {
			t.Setenv("REFLECT_ADDR", " ")
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given a started service behind the mux", t, func() {
		const secret = "test-secret"
		t.Setenv("REFLECT_SQLITE_PATH", filepath.Join(t.TempDir(), "reflect.db"))
		t.Setenv("REFLECT_JWT_SECRET", secret)
		t.Setenv("REFLECT_OUTBOX_POLL_INTERVAL_MS", "20")

		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		svc := service.New(service.WithConfig(cfg), service.WithLogger(logger.Get()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, svc, cfg)
		token := signedToken(secret, "user-1")

		call := func(method, target, body string, auth bool) *httptest.ResponseRecorder {
			var r *http.Request
			if body == "" {
				r = httptest.NewRequest(method, target, http.NoBody)
			} else {
				r = httptest.NewRequest(method, target, strings.NewReader(body))
			}
			if auth {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			return w
		}

		convey.Convey("Then docs and metrics are served", func() {
			convey.So(call(http.MethodGet, "/api-docs", "", false).Code, convey.ShouldEqual, http.StatusOK)
			convey.So(call(http.MethodGet, "/openapi.yaml", "", false).Code, convey.ShouldEqual, http.StatusOK)
			convey.So(call(http.MethodGet, "/healthz", "", false).Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then a saved reflection shows up in the stats", func() {
			w := call(http.MethodPost, "/reflections", `{"kind":"compass_check","fields":{"weightLevel":"crushing","affecting":"sleep"}}`, true)
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)

			var saved struct {
				Success bool           `json:"success"`
				Data    map[string]any `json:"data"`
			}
			convey.So(json.Unmarshal(w.Body.Bytes(), &saved), convey.ShouldBeNil)
			convey.So(saved.Success, convey.ShouldBeTrue)
			convey.So(saved.Data["moralDistressLevel"], convey.ShouldEqual, 10)
			convey.So(saved.Data["residueIntensity"], convey.ShouldEqual, 8)

			w = call(http.MethodGet, "/reflections/stats", "", true)
			var stats struct {
				Total int `json:"totalReflections"`
			}
			convey.So(json.Unmarshal(w.Body.Bytes(), &stats), convey.ShouldBeNil)
			convey.So(stats.Total, convey.ShouldEqual, 1)
		})

		convey.Convey("Then reads require a session", func() {
			convey.So(call(http.MethodGet, "/reflections", "", false).Code, convey.ShouldEqual, http.StatusUnauthorized)
		})

		convey.Convey("Then service gauges update without panicking", func() {
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then the updaters return immediately", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, service.New()) }, convey.ShouldNotPanic)
		})
	})
}

func unsignedToken(userID string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		panic(err)
	}
	return s
}

func TestForgedTokens(t *testing.T) {
	convey.Convey("Given the default sqlite store", t, func() {
		t.Setenv("REFLECT_SQLITE_PATH", filepath.Join(t.TempDir(), "reflect.db"))
		ctx := context.Background()

		convey.Convey("Then it does not load without a token secret", func() {
			t.Setenv("REFLECT_JWT_SECRET", "")
			t.Setenv("REFLECT_INSECURE_SKIP_VERIFY", "false")
			cfg, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		for _, mode := range []struct {
			name, secret, insecure string
		}{
			{"a token secret", "test-secret", "false"},
			{"signature checks switched off", "", "true"},
		} {
			convey.Convey("When started with "+mode.name, func() {
				t.Setenv("REFLECT_JWT_SECRET", mode.secret)
				t.Setenv("REFLECT_INSECURE_SKIP_VERIFY", mode.insecure)
				t.Setenv("REFLECT_OPERATOR_TOKEN", "ops-token")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)

				svc := service.New(service.WithConfig(cfg), service.WithLogger(logger.Get()))
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				defer svc.Stop()
				mux := newMux(ctx, svc, cfg)

				send := func(method, target, body, token string) int {
					r := httptest.NewRequest(method, target, strings.NewReader(body))
					r.Header.Set("Authorization", "Bearer "+token)
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, r)
					return w.Code
				}

				convey.Convey("Then an unsigned token is refused on reads and writes", func() {
					forged := unsignedToken("victim")
					convey.So(send(http.MethodGet, "/reflections", "", forged), convey.ShouldEqual, http.StatusUnauthorized)
					convey.So(send(http.MethodPost, "/reflections", `{"kind":"compass_check","fields":{}}`, forged), convey.ShouldEqual, http.StatusUnauthorized)
				})

				convey.Convey("Then dead jobs need the operator token", func() {
					convey.So(send(http.MethodGet, "/outbox/dead", "", signedToken("test-secret", "user-1")), convey.ShouldEqual, http.StatusUnauthorized)
					convey.So(send(http.MethodGet, "/outbox/dead", "", "ops-token"), convey.ShouldEqual, http.StatusOK)
				})
			})
		}
	})
}
