// Package service wires the reflection components together and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/activity/redisstore"
	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/adapters/datastore/rest"
	"github.com/okian/interpretreflect/internal/adapters/datastore/sqlite"
	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/internal/adapters/mq/queue"
	"github.com/okian/interpretreflect/internal/adapters/mq/worker"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/config"
	"github.com/okian/interpretreflect/internal/domain/assembler"
	"github.com/okian/interpretreflect/internal/domain/dedupe"
	"github.com/okian/interpretreflect/internal/domain/insights"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/domain/wellness"
	"github.com/okian/interpretreflect/internal/gateway"
	"github.com/okian/interpretreflect/internal/retrieval"
	"github.com/okian/interpretreflect/pkg/logger"
	"github.com/okian/interpretreflect/pkg/metrics"
)

// Service implements the API dependencies for the reflection backend.
type Service struct {
	mu sync.RWMutex

	cfg        *config.Config
	classifier wellness.Classifier
	now        func() time.Time

	// Stores
	store    datastore.Store
	jobs     outbox.Store
	activity datastore.ActivityStore
	closers  []io.Closer

	// Core components
	deduper    dedupe.Deduper
	queue      queue.Queue
	pool       *worker.Pool
	dispatcher *worker.Dispatcher
	gateway    *gateway.Gateway
	reader     *retrieval.Service
	verifier   *auth.Verifier
	hasher     *wellness.Hasher

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the stores and starts background processing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting reflection service...",
		logger.String("store", s.cfg.StoreDriver),
		logger.String("outbox", s.cfg.OutboxDriver),
		logger.String("activity", s.cfg.ActivityDriver))

	if s.cfg.JWTSecret == "" && !s.cfg.UnverifiedTokens() {
		return fmt.Errorf("%w: jwt_secret is required unless store_driver=rest or insecure_skip_verify is set", config.ErrInvalidConfig)
	}
	if s.cfg.JWTSecret == "" {
		s.logger.Warn(ctx, "session token signatures are not verified")
	}

	if err := s.openStores(ctx); err != nil {
		s.closeStores()
		return err
	}

	loc := s.cfg.Location()
	s.hasher = wellness.NewHasher(s.cfg.UserHashSalt)
	s.verifier = auth.NewVerifier(s.cfg.JWTSecret, s.now)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(max(s.cfg.OutboxBatchSize*2, 16)))
	s.dispatcher = worker.NewDispatcher(s.jobs, s.queue,
		worker.WithPollInterval(time.Duration(s.cfg.OutboxPollIntervalMS)*time.Millisecond),
		worker.WithBatchSize(s.cfg.OutboxBatchSize),
		worker.WithDispatcherClock(s.now))

	side := &sideWriters{
		wellness:  s.store,
		activity:  s.activity,
		extractor: wellness.NewExtractor(s.classifier),
		hasher:    s.hasher,
		loc:       loc,
		now:       s.now,
		locks:     newKeyLock(),
		logger:    s.logger.Named("side-writes"),
	}
	policy := outbox.DefaultPolicy()
	policy.MaxAttempts = s.cfg.OutboxMaxAttempts
	if s.cfg.OutboxInitialBackoffMS > 0 {
		policy.Initial = time.Duration(s.cfg.OutboxInitialBackoffMS) * time.Millisecond
	}
	if s.cfg.OutboxMaxBackoffMS > 0 {
		policy.Max = time.Duration(s.cfg.OutboxMaxBackoffMS) * time.Millisecond
	}
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s.jobs, side.handlers(),
		worker.WithPolicy(policy),
		worker.WithClock(s.now))

	s.gateway = gateway.New(s.store, s.jobs,
		gateway.WithTimeout(s.cfg.SaveTimeout()),
		gateway.WithClock(s.now),
		gateway.WithNotify(s.dispatcher.Notify),
		gateway.WithLogger(s.logger.Named("gateway")))
	s.reader = retrieval.New(s.store, s.activity, s.store, s.hasher,
		retrieval.WithLocation(loc),
		retrieval.WithReadTimeout(s.cfg.ReadTimeout()),
		retrieval.WithTopKinds(s.cfg.TopKinds),
		retrieval.WithMaxLimit(s.cfg.MaxReflectionsLimit),
		retrieval.WithClock(s.now),
		retrieval.WithLogger(s.logger.Named("retrieval")))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)
	go s.dispatcher.Run(runCtx)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "reflection service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.Duration("saveTimeout", s.cfg.SaveTimeout()))
	return nil
}

// openStores opens whatever was not injected.
func (s *Service) openStores(ctx context.Context) error {
	var local *sqlite.Store
	openLocal := func() (*sqlite.Store, error) {
		if local != nil {
			return local, nil
		}
		st, err := sqlite.New(s.cfg.SQLitePath, sqlite.WithClock(s.now))
		if err != nil {
			return nil, err
		}
		local = st
		s.closers = append(s.closers, st)
		return st, nil
	}

	if s.store == nil {
		switch s.cfg.StoreDriver {
		case config.DriverREST:
			creds := auth.KeyProvider{AnonKey: s.cfg.DatastoreAnonKey, ServiceKey: s.cfg.DatastoreServiceKey}
			c, err := rest.New(s.cfg.DatastoreURL, creds)
			if err != nil {
				return fmt.Errorf("open rest store: %w", err)
			}
			s.closers = append(s.closers, c)
			s.store = c
		default:
			st, err := openLocal()
			if err != nil {
				return fmt.Errorf("open sqlite store: %w", err)
			}
			s.store = st
		}
	}

	if s.jobs == nil {
		switch s.cfg.OutboxDriver {
		case config.DriverMemory:
			s.jobs = outbox.NewMemoryStore(outbox.WithClock(s.now))
		default:
			st, err := openLocal()
			if err != nil {
				return fmt.Errorf("open sqlite outbox: %w", err)
			}
			s.jobs = st
		}
	}

	if s.activity == nil {
		switch s.cfg.ActivityDriver {
		case config.DriverRedis:
			rs, err := redisstore.Dial(ctx, s.cfg.RedisAddr, s.cfg.RedisKeyPrefix)
			if err != nil {
				return fmt.Errorf("open redis activity store: %w", err)
			}
			s.closers = append(s.closers, rs)
			s.activity = rs
		default:
			s.activity = s.store
		}
	}
	return nil
}

func (s *Service) closeStores() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && s.logger != nil {
			s.logger.Warn(context.Background(), "error closing store", logger.Error(err))
		}
	}
	s.closers = nil
}

// Stop drains background work and closes the stores it opened.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping reflection service...")

	s.cancel()
	<-s.dispatcher.Done()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.closeStores()

	s.started = false
	s.logger.Info(ctx, "reflection service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Verify authenticates a bearer token.
func (s *Service) Verify(token string) (auth.Session, error) {
	if !s.running() {
		return auth.Session{}, ErrNotStarted
	}
	return s.verifier.Verify(token)
}

// SeenAndRecord reports whether the user already submitted key, recording
// it if not.
func (s *Service) SeenAndRecord(ctx context.Context, userID, key string) bool {
	seen := s.deduper.SeenAndRecord(ctx, userID, key)
	if seen {
		metrics.RecordDuplicateSubmission()
	}
	return seen
}

// Unrecord releases key so the submission can be retried.
func (s *Service) Unrecord(ctx context.Context, userID, key string) {
	s.deduper.Unrecord(ctx, userID, key)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// assemble decodes, scores and flattens one form submission.
func assemble(kindTag string, fields json.RawMessage) (model.Record, error) {
	kind, err := model.ParseKind(kindTag)
	if err != nil {
		return model.Record{}, err
	}
	payload, err := model.DecodePayload(kind, fields)
	if err != nil {
		return model.Record{}, err
	}
	return assembler.AssembleFields(payload, fields)
}

// PreviewScores scores a submission without saving it.
func (s *Service) PreviewScores(_ context.Context, kind string, fields json.RawMessage) (model.Record, error) {
	return assemble(kind, fields)
}

// SubmitReflection scores, assembles and saves a submission for the
// session user. On a failed save the returned entry still carries the
// assembled kind and data.
func (s *Service) SubmitReflection(ctx context.Context, kind string, fields json.RawMessage) (model.Entry, error) {
	if !s.running() {
		return model.Entry{}, ErrNotStarted
	}
	rec, err := assemble(kind, fields)
	if err != nil {
		return model.Entry{}, err
	}
	e, err := s.gateway.SaveReflection(ctx, auth.UserIDFrom(ctx), rec.Kind, rec.Data)
	if err != nil {
		return model.Entry{Kind: rec.Kind, Data: rec.Data}, err
	}
	return e, nil
}

// Reflections lists the session user's reflections.
func (s *Service) Reflections(ctx context.Context, limit int, window time.Duration) []model.Entry {
	if !s.running() {
		return []model.Entry{}
	}
	return s.reader.GetUserReflections(ctx, auth.UserIDFrom(ctx), limit, window)
}

// ReflectionStats summarizes the session user's reflections.
func (s *Service) ReflectionStats(ctx context.Context) insights.Stats {
	if !s.running() {
		return insights.EmptyStats()
	}
	return s.reader.GetReflectionStats(ctx, auth.UserIDFrom(ctx))
}

// ReflectionInsights summarizes the session user's reflections in window.
func (s *Service) ReflectionInsights(ctx context.Context, window time.Duration) insights.Insights {
	if !s.running() {
		return insights.EmptyInsights(window)
	}
	return s.reader.GetReflectionInsights(ctx, auth.UserIDFrom(ctx), window)
}

// ActivityStreak returns the session user's daily activity streak.
func (s *Service) ActivityStreak(ctx context.Context) int {
	if !s.running() {
		return 0
	}
	return s.reader.GetActivityStreak(ctx, auth.UserIDFrom(ctx))
}

// WellnessTrend returns the session user's weekly wellness snapshots.
func (s *Service) WellnessTrend(ctx context.Context, weeks int) []retrieval.TrendPoint {
	if !s.running() {
		return []retrieval.TrendPoint{}
	}
	return s.reader.GetWellnessTrend(ctx, auth.UserIDFrom(ctx), weeks)
}

// Dashboard returns the combined landing page figures.
func (s *Service) Dashboard(ctx context.Context, recent, weeks int) retrieval.Dashboard {
	if !s.running() {
		return retrieval.Dashboard{Stats: insights.EmptyStats(), Trend: []retrieval.TrendPoint{}, Recent: []model.Entry{}}
	}
	return s.reader.GetDashboard(ctx, auth.UserIDFrom(ctx), recent, weeks)
}

// DeadJobs lists background jobs that exhausted their retries.
func (s *Service) DeadJobs(ctx context.Context, limit int) ([]outbox.Job, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.jobs.Dead(ctx, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"storeDriver":    s.cfg.StoreDriver,
		"outboxDriver":   s.cfg.OutboxDriver,
		"activityDriver": s.cfg.ActivityDriver,
		"dedupeSize":     s.cfg.DedupeSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
	stats["workerCount"] = s.pool.Size()
	stats["queueLength"] = s.queue.Len(ctx)
	stats["queueFree"] = s.queue.Free(ctx)
	stats["dedupeEntries"] = s.deduper.Size()

	st, err := s.jobs.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "outbox stats unavailable", logger.Error(err))
		return stats
	}
	stats["outbox"] = st
	metrics.UpdateOutboxDepth(st.Pending, st.Dead)
	return stats
}
