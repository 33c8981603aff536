package wellness

import (
	"time"

	"github.com/okian/interpretreflect/internal/domain/model"
)

// Flag thresholds.
const (
	highStressLevel   = 7.0
	highStressSamples = 2
	recoveryBurnout   = 7.0
	recoveryEnergy    = 3.0
	growthConfidence  = 7.0
)

// Merge folds sig into snap. Stress, energy and confidence keep a
// count-weighted running mean; burnout keeps the weekly maximum. Flags are
// recomputed from the merged values.
func Merge(snap model.Snapshot, sig Signals, now time.Time) model.Snapshot {
	if sig.Stress != nil {
		snap.StressLevel, snap.StressSamples = runningMean(snap.StressLevel, snap.StressSamples, *sig.Stress)
	}
	if sig.Energy != nil {
		snap.EnergyLevel, snap.EnergySamples = runningMean(snap.EnergyLevel, snap.EnergySamples, *sig.Energy)
	}
	if sig.Confidence != nil {
		snap.ConfidenceScore, snap.ConfidenceSamples = runningMean(snap.ConfidenceScore, snap.ConfidenceSamples, *sig.Confidence)
	}
	if sig.Burnout != nil {
		if snap.BurnoutSamples == 0 || *sig.Burnout > snap.BurnoutScore {
			snap.BurnoutScore = *sig.Burnout
		}
		snap.BurnoutSamples++
	}

	snap.HighStressPattern = snap.StressSamples >= highStressSamples && snap.StressLevel >= highStressLevel
	snap.RecoveryNeeded = (snap.BurnoutSamples > 0 && snap.BurnoutScore >= recoveryBurnout) ||
		(snap.EnergySamples > 0 && snap.EnergyLevel <= recoveryEnergy)
	snap.GrowthTrajectory = snap.ConfidenceSamples > 0 && snap.ConfidenceScore >= growthConfidence
	snap.UpdatedAt = now
	return snap
}

func runningMean(mean float64, n int, v float64) (float64, int) {
	if n <= 0 {
		return v, 1
	}
	return (mean*float64(n) + v) / float64(n+1), n + 1
}

// WeekOf returns midnight of the Monday starting t's week in loc.
func WeekOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
}
