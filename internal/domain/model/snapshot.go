package model

import "time"

// Snapshot is the weekly, per-user, anonymized rollup of wellness signals.
// Averaged metrics keep their sample counts so merges are order independent.
type Snapshot struct {
	UserHash string    `json:"user_hash"`
	WeekOf   time.Time `json:"week_of"`

	StressLevel     float64 `json:"stress_level"`
	EnergyLevel     float64 `json:"energy_level"`
	BurnoutScore    float64 `json:"burnout_score"`
	ConfidenceScore float64 `json:"confidence_score"`

	StressSamples     int `json:"stress_samples"`
	EnergySamples     int `json:"energy_samples"`
	BurnoutSamples    int `json:"burnout_samples"`
	ConfidenceSamples int `json:"confidence_samples"`

	HighStressPattern bool `json:"high_stress_pattern"`
	RecoveryNeeded    bool `json:"recovery_needed"`
	GrowthTrajectory  bool `json:"growth_trajectory"`

	UpdatedAt time.Time `json:"updated_at"`
}

// AnonymizedRecord is the append-only audit copy of one extraction.
type AnonymizedRecord struct {
	RecordHash string    `json:"record_hash"`
	UserHash   string    `json:"user_hash"`
	WeekOf     time.Time `json:"week_of"`
	Kind       Kind      `json:"entry_kind"`
	Stress     *float64  `json:"stress_level,omitempty"`
	Energy     *float64  `json:"energy_level,omitempty"`
	Burnout    *float64  `json:"burnout_score,omitempty"`
	Confidence *float64  `json:"confidence_score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
