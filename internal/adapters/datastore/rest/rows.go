package rest

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/domain/model"
)

type entryRow struct {
	ID        any            `json:"id"`
	UserID    any            `json:"user_id"`
	Kind      string         `json:"entry_kind"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (r entryRow) entry() model.Entry { //nolint:gocritic // hugeParam
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}
	return model.Entry{
		ID:        cast.ToString(r.ID),
		UserID:    cast.ToString(r.UserID),
		Kind:      model.Kind(r.Kind),
		Data:      data,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type snapshotRow struct {
	UserHash          string    `json:"user_hash"`
	WeekOf            string    `json:"week_of"`
	StressLevel       float64   `json:"stress_level"`
	EnergyLevel       float64   `json:"energy_level"`
	BurnoutScore      float64   `json:"burnout_score"`
	ConfidenceScore   float64   `json:"confidence_score"`
	StressSamples     int       `json:"stress_samples"`
	EnergySamples     int       `json:"energy_samples"`
	BurnoutSamples    int       `json:"burnout_samples"`
	ConfidenceSamples int       `json:"confidence_samples"`
	HighStressPattern bool      `json:"high_stress_pattern"`
	RecoveryNeeded    bool      `json:"recovery_needed"`
	GrowthTrajectory  bool      `json:"growth_trajectory"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func snapshotToRow(s model.Snapshot) snapshotRow { //nolint:gocritic // hugeParam
	return snapshotRow{
		UserHash:          s.UserHash,
		WeekOf:            s.WeekOf.Format(datastore.DateLayout),
		StressLevel:       s.StressLevel,
		EnergyLevel:       s.EnergyLevel,
		BurnoutScore:      s.BurnoutScore,
		ConfidenceScore:   s.ConfidenceScore,
		StressSamples:     s.StressSamples,
		EnergySamples:     s.EnergySamples,
		BurnoutSamples:    s.BurnoutSamples,
		ConfidenceSamples: s.ConfidenceSamples,
		HighStressPattern: s.HighStressPattern,
		RecoveryNeeded:    s.RecoveryNeeded,
		GrowthTrajectory:  s.GrowthTrajectory,
		UpdatedAt:         s.UpdatedAt.UTC(),
	}
}

func (r snapshotRow) snapshot() (model.Snapshot, error) { //nolint:gocritic // hugeParam
	week, err := time.Parse(datastore.DateLayout, r.WeekOf)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("parse week_of %q: %w", r.WeekOf, err)
	}
	return model.Snapshot{
		UserHash:          r.UserHash,
		WeekOf:            week,
		StressLevel:       r.StressLevel,
		EnergyLevel:       r.EnergyLevel,
		BurnoutScore:      r.BurnoutScore,
		ConfidenceScore:   r.ConfidenceScore,
		StressSamples:     r.StressSamples,
		EnergySamples:     r.EnergySamples,
		BurnoutSamples:    r.BurnoutSamples,
		ConfidenceSamples: r.ConfidenceSamples,
		HighStressPattern: r.HighStressPattern,
		RecoveryNeeded:    r.RecoveryNeeded,
		GrowthTrajectory:  r.GrowthTrajectory,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

type anonymizedRow struct {
	RecordHash      string    `json:"record_hash"`
	UserHash        string    `json:"user_hash"`
	WeekOf          string    `json:"week_of"`
	Kind            string    `json:"entry_kind"`
	StressLevel     *float64  `json:"stress_level"`
	EnergyLevel     *float64  `json:"energy_level"`
	BurnoutScore    *float64  `json:"burnout_score"`
	ConfidenceScore *float64  `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

type activityRow struct {
	UserID       string `json:"user_id"`
	ActivityDate string `json:"activity_date"`
}
