// Package wellness extracts coarse wellness signals from saved reflections
// and folds them into weekly anonymized snapshots.
package wellness

// Metric scale bounds.
const (
	minMetric = 1.0
	maxMetric = 10.0
)

// Signals holds the metrics found in one reflection. A nil field means the
// reflection said nothing about that metric.
type Signals struct {
	Stress     *float64
	Energy     *float64
	Burnout    *float64
	Confidence *float64
}

// Empty reports whether no metric was found.
func (s Signals) Empty() bool {
	return s.Stress == nil && s.Energy == nil && s.Burnout == nil && s.Confidence == nil
}

// Overlay returns s with every metric missing from s taken from other.
func (s Signals) Overlay(other Signals) Signals {
	if s.Stress == nil {
		s.Stress = other.Stress
	}
	if s.Energy == nil {
		s.Energy = other.Energy
	}
	if s.Burnout == nil {
		s.Burnout = other.Burnout
	}
	if s.Confidence == nil {
		s.Confidence = other.Confidence
	}
	return s
}

func ptr(v float64) *float64 { return &v }

func clampMetric(v float64) float64 {
	if v < minMetric {
		return minMetric
	}
	if v > maxMetric {
		return maxMetric
	}
	return v
}
