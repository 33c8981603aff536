package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
	"github.com/okian/interpretreflect/internal/adapters/mq/worker"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/domain/wellness"
	"github.com/okian/interpretreflect/internal/gateway"
	"github.com/okian/interpretreflect/pkg/logger"
	"github.com/okian/interpretreflect/pkg/metrics"
)

// sideWriters runs the background jobs scheduled by the gateway.
type sideWriters struct {
	wellness  datastore.WellnessStore
	activity  datastore.ActivityStore
	extractor *wellness.Extractor
	hasher    *wellness.Hasher
	loc       *time.Location
	now       func() time.Time
	locks     *keyLock
	logger    logger.Logger
}

func (h *sideWriters) handlers() map[string]worker.Handler {
	return map[string]worker.Handler{
		gateway.JobWellnessExtract: h.extract,
		gateway.JobActivityRecord:  h.recordActivity,
	}
}

// extract merges the signals of one save into the user's weekly snapshot.
// The anonymized record doubles as the done marker, so a replayed job is a
// no-op once it has been written.
func (h *sideWriters) extract(ctx context.Context, j outbox.Job) error { //nolint:gocritic // hugeParam
	var p gateway.ExtractJob
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return outbox.Permanent(fmt.Errorf("decode extract job: %w", err))
	}
	if p.UserID == "" || p.SaveID == "" {
		return outbox.Permanent(fmt.Errorf("extract job %s: missing user or save id", j.ID))
	}
	ctx = auth.WithServiceRole(ctx)

	sig := h.extractor.Extract(p.Kind, p.Data)
	if sig.Empty() {
		return nil
	}

	userHash := h.hasher.UserHash(p.UserID)
	recordHash := h.hasher.RecordHash(p.UserID, p.SaveID)
	savedAt := p.SavedAt
	if savedAt.IsZero() {
		savedAt = j.CreatedAt
	}
	week := wellness.WeekOf(savedAt, h.loc)

	unlock := h.locks.Lock(userHash + "|" + week.Format(datastore.DateLayout))
	defer unlock()

	done, err := h.wellness.HasAnonymizedRecord(ctx, recordHash)
	if err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if done {
		metrics.RecordExtractionReplay()
		return nil
	}

	snap, ok, err := h.wellness.GetSnapshot(ctx, userHash, week)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		snap = model.Snapshot{UserHash: userHash, WeekOf: week}
	}
	merged := wellness.Merge(snap, sig, h.now())
	if err := h.wellness.UpsertSnapshot(ctx, merged); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	metrics.RecordSnapshotMerge()

	rec := model.AnonymizedRecord{
		RecordHash: recordHash,
		UserHash:   userHash,
		WeekOf:     week,
		Kind:       p.Kind,
		Stress:     sig.Stress,
		Energy:     sig.Energy,
		Burnout:    sig.Burnout,
		Confidence: sig.Confidence,
		CreatedAt:  h.now(),
	}
	if err := h.wellness.InsertAnonymizedRecord(ctx, rec); err != nil {
		return fmt.Errorf("save anonymized record: %w", err)
	}

	h.logger.Debug(ctx, "wellness snapshot updated",
		logger.String("user_hash", userHash),
		logger.String("week_of", week.Format(datastore.DateLayout)),
		logger.Bool("high_stress", merged.HighStressPattern),
		logger.Bool("recovery_needed", merged.RecoveryNeeded))
	return nil
}

func (h *sideWriters) recordActivity(ctx context.Context, j outbox.Job) error { //nolint:gocritic // hugeParam
	var p gateway.ActivityJob
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return outbox.Permanent(fmt.Errorf("decode activity job: %w", err))
	}
	if p.UserID == "" {
		return outbox.Permanent(fmt.Errorf("activity job %s: missing user id", j.ID))
	}
	savedAt := p.SavedAt
	if savedAt.IsZero() {
		savedAt = j.CreatedAt
	}
	day := datastore.Date(savedAt.In(h.loc))
	if err := h.activity.RecordActivity(auth.WithServiceRole(ctx), p.UserID, day); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}
