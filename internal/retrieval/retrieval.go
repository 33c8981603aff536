// Package retrieval serves the read side: reflection lists, dashboard
// aggregates, streaks and wellness trends. Reads never fail outward; any
// store error is logged and the caller gets an empty result.
package retrieval

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/insights"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/domain/wellness"
	"github.com/okian/interpretreflect/pkg/logger"
	"github.com/okian/interpretreflect/pkg/metrics"
)

const (
	day = 24 * time.Hour

	// statsScanLimit caps how many entries one stats call reads.
	statsScanLimit = 5000
	// activityHorizon is how far back streaks look.
	activityHorizon = 400 * day
)

// ReflectionReader lists reflections.
type ReflectionReader interface {
	ListReflections(ctx context.Context, q datastore.ListQuery) ([]model.Entry, error)
}

// ActivityReader lists active days.
type ActivityReader interface {
	ActivityDays(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}

// SnapshotReader lists weekly wellness snapshots.
type SnapshotReader interface {
	ListSnapshots(ctx context.Context, userHash string, since time.Time) ([]model.Snapshot, error)
}

// TrendPoint is one week of a user's wellness trend.
type TrendPoint struct {
	WeekOf            string  `json:"weekOf"`
	StressLevel       float64 `json:"stressLevel"`
	EnergyLevel       float64 `json:"energyLevel"`
	BurnoutScore      float64 `json:"burnoutScore"`
	ConfidenceScore   float64 `json:"confidenceScore"`
	HighStressPattern bool    `json:"highStressPattern"`
	RecoveryNeeded    bool    `json:"recoveryNeeded"`
	GrowthTrajectory  bool    `json:"growthTrajectory"`
}

// Dashboard bundles the figures shown on the landing page.
type Dashboard struct {
	Stats          insights.Stats `json:"stats"`
	ActivityStreak int            `json:"activityStreak"`
	Trend          []TrendPoint   `json:"wellnessTrend"`
	Recent         []model.Entry  `json:"recent"`
}

// Service implements the read operations.
type Service struct {
	reflections ReflectionReader
	activity    ActivityReader
	snapshots   SnapshotReader
	hasher      *wellness.Hasher

	loc      *time.Location
	timeout  time.Duration
	topKinds int
	maxLimit int
	now      func() time.Time
	log      logger.Logger
}

// New builds the read service. activity and snapshots may be nil, in which
// case their operations return empty results.
func New(reflections ReflectionReader, activity ActivityReader, snapshots SnapshotReader, hasher *wellness.Hasher, opts ...Option) *Service {
	s := &Service{
		reflections: reflections,
		activity:    activity,
		snapshots:   snapshots,
		hasher:      hasher,
		loc:         time.UTC,
		timeout:     5 * time.Second,
		topKinds:    5,
		maxLimit:    500,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("retrieval")
	}
	return s
}

// degrade logs a failed read and counts it.
func (s *Service) degrade(ctx context.Context, op, userID string, err error) {
	metrics.RecordRetrievalDegraded(op)
	fields := []logger.Field{logger.String("op", op), logger.Error(err)}
	if errors.Is(err, auth.ErrSessionExpired) {
		fields = append(fields, logger.Bool("session_expired", true))
	}
	if userID != "" {
		fields = append(fields, logger.String("user_hash", s.userHash(userID)))
	}
	s.log.Warn(ctx, "read failed, returning empty result", fields...)
}

func (s *Service) userHash(userID string) string {
	if s.hasher == nil {
		return ""
	}
	return s.hasher.UserHash(userID)
}

// GetUserReflections lists the user's reflections newest first. A positive
// window keeps only entries created within it; a positive limit caps the
// count.
func (s *Service) GetUserReflections(ctx context.Context, userID string, limit int, window time.Duration) []model.Entry {
	if userID == "" {
		return []model.Entry{}
	}
	if limit <= 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}
	q := datastore.ListQuery{UserID: userID, Limit: limit}
	if window > 0 {
		q.Since = s.now().Add(-window)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.reflections.ListReflections(ctx, q)
	if err != nil {
		s.degrade(ctx, "list_reflections", userID, err)
		return []model.Entry{}
	}
	if out == nil {
		out = []model.Entry{}
	}
	return out
}

// GetReflectionStats summarizes every reflection of the user.
func (s *Service) GetReflectionStats(ctx context.Context, userID string) insights.Stats {
	if userID == "" {
		return insights.EmptyStats()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	entries, err := s.reflections.ListReflections(ctx, datastore.ListQuery{UserID: userID, Limit: statsScanLimit})
	if err != nil {
		s.degrade(ctx, "reflection_stats", userID, err)
		return insights.EmptyStats()
	}
	return insights.ComputeStats(entries, s.now(), s.loc)
}

// GetReflectionInsights summarizes reflections within window (all time when
// zero).
func (s *Service) GetReflectionInsights(ctx context.Context, userID string, window time.Duration) insights.Insights {
	if userID == "" {
		return insights.EmptyInsights(window)
	}
	now := s.now()
	q := datastore.ListQuery{UserID: userID, Limit: statsScanLimit}
	if window > 0 {
		q.Since = now.Add(-window)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	entries, err := s.reflections.ListReflections(ctx, q)
	if err != nil {
		s.degrade(ctx, "reflection_insights", userID, err)
		return insights.EmptyInsights(window)
	}
	return insights.ComputeInsights(entries, window, now, s.loc, s.topKinds)
}

// GetActivityStreak counts consecutive active days ending today or
// yesterday.
func (s *Service) GetActivityStreak(ctx context.Context, userID string) int {
	if userID == "" || s.activity == nil {
		return 0
	}
	today := datastore.Date(s.now().In(s.loc))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	days, err := s.activity.ActivityDays(ctx, userID, today.Add(-activityHorizon))
	if err != nil {
		s.degrade(ctx, "activity_streak", userID, err)
		return 0
	}
	// Days are calendar dates already; compare them against today's date.
	return insights.Streak(days, today, time.UTC)
}

// GetWellnessTrend returns up to weeks weekly snapshots, oldest first.
func (s *Service) GetWellnessTrend(ctx context.Context, userID string, weeks int) []TrendPoint {
	if userID == "" || s.snapshots == nil || s.hasher == nil {
		return []TrendPoint{}
	}
	if weeks <= 0 {
		weeks = 12
	}
	since := wellness.WeekOf(s.now(), s.loc).AddDate(0, 0, -7*(weeks-1))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	snaps, err := s.snapshots.ListSnapshots(ctx, s.hasher.UserHash(userID), since)
	if err != nil {
		s.degrade(ctx, "wellness_trend", userID, err)
		return []TrendPoint{}
	}
	out := make([]TrendPoint, 0, len(snaps))
	for i := range snaps {
		sn := &snaps[i]
		out = append(out, TrendPoint{
			WeekOf:            sn.WeekOf.Format(datastore.DateLayout),
			StressLevel:       sn.StressLevel,
			EnergyLevel:       sn.EnergyLevel,
			BurnoutScore:      sn.BurnoutScore,
			ConfidenceScore:   sn.ConfidenceScore,
			HighStressPattern: sn.HighStressPattern,
			RecoveryNeeded:    sn.RecoveryNeeded,
			GrowthTrajectory:  sn.GrowthTrajectory,
		})
	}
	return out
}

// GetDashboard runs the dashboard reads concurrently. Each part degrades on
// its own.
func (s *Service) GetDashboard(ctx context.Context, userID string, recent, weeks int) Dashboard {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Stats = s.GetReflectionStats(gctx, userID)
		return nil
	})
	g.Go(func() error {
		d.ActivityStreak = s.GetActivityStreak(gctx, userID)
		return nil
	})
	g.Go(func() error {
		d.Trend = s.GetWellnessTrend(gctx, userID, weeks)
		return nil
	})
	g.Go(func() error {
		d.Recent = s.GetUserReflections(gctx, userID, recent, 0)
		return nil
	})
	_ = g.Wait()
	return d
}
