// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/insights"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/retrieval"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Verify authenticates a bearer token.
	Verify(token string) (auth.Session, error)

	// SeenAndRecord and Unrecord implement per-user submission idempotency.
	SeenAndRecord(ctx context.Context, userID, key string) bool
	Unrecord(ctx context.Context, userID, key string)

	// Write operations act for the session user carried by ctx.
	SubmitReflection(ctx context.Context, kind string, fields json.RawMessage) (model.Entry, error)
	PreviewScores(ctx context.Context, kind string, fields json.RawMessage) (model.Record, error)

	// Read operations never fail; they degrade to empty results.
	Reflections(ctx context.Context, limit int, window time.Duration) []model.Entry
	ReflectionStats(ctx context.Context) insights.Stats
	ReflectionInsights(ctx context.Context, window time.Duration) insights.Insights
	ActivityStreak(ctx context.Context) int
	WellnessTrend(ctx context.Context, weeks int) []retrieval.TrendPoint
	Dashboard(ctx context.Context, recent, weeks int) retrieval.Dashboard

	DeadJobs(ctx context.Context, limit int) ([]outbox.Job, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	reflectionsHandler *ReflectionsHandler
	wellnessHandler    *WellnessHandler
	dashboardHandler   *dashboardHandler
	jobsHandler        *JobsHandler
	auth               *authenticator
	operator           *operatorGuard
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithOperatorToken sets the bearer token that unlocks operator routes.
func WithOperatorToken(token string) ServerOption {
	return func(s *Server) {
		s.operator = &operatorGuard{token: []byte(token)}
	}
}

// NewServer creates a new API server with all handlers. maxLimit caps list
// sizes. Operator routes stay locked unless WithOperatorToken is given.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		reflectionsHandler: NewReflectionsHandler(deps, maxLimit),
		wellnessHandler:    NewWellnessHandler(deps),
		dashboardHandler:   newDashboardHandler(deps),
		jobsHandler:        NewJobsHandler(deps),
		auth:               &authenticator{deps: deps},
		operator:           &operatorGuard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.reflectionsHandler.HandlePreviewScores, "scores"))
	mux.HandleFunc("/outbox/dead", MetricsMiddleware(s.operator.require(s.jobsHandler.HandleDeadJobs), "outbox_dead"))

	mux.HandleFunc("/reflections", MetricsMiddleware(s.auth.require(s.reflectionsHandler.HandleReflections), "reflections"))
	mux.HandleFunc("/reflections/stats", MetricsMiddleware(s.auth.require(s.reflectionsHandler.HandleStats), "reflections_stats"))
	mux.HandleFunc("/reflections/insights", MetricsMiddleware(s.auth.require(s.reflectionsHandler.HandleInsights), "reflections_insights"))
	mux.HandleFunc("/activity/streak", MetricsMiddleware(s.auth.require(s.wellnessHandler.HandleStreak), "activity_streak"))
	mux.HandleFunc("/wellness/trend", MetricsMiddleware(s.auth.require(s.wellnessHandler.HandleTrend), "wellness_trend"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.auth.require(s.dashboardHandler.HandleDashboard), "dashboard"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// queryInt reads a non-negative integer query parameter. Missing means def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, WrapKind("api.query", ErrBadRequest, &queryError{name: name})
	}
	return n, nil
}

type queryError struct{ name string }

func (e *queryError) Error() string { return "invalid " + e.name + "; must be a non-negative integer" }

// queryWindow reads a window given in days.
func queryWindow(r *http.Request, def int) (time.Duration, error) {
	days, err := queryInt(r, "window", def)
	if err != nil {
		return 0, err
	}
	return time.Duration(days) * 24 * time.Hour, nil
}
