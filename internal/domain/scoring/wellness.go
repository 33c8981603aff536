package scoring

import "github.com/okian/interpretreflect/internal/domain/model"

// Burnout risk levels.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

var sleepAdjust = map[string]int{
	"excellent": 2,
	"good":      1,
	"fair":      0,
	"poor":      -2,
}

// WellnessScores are the derived values of a Wellness Check-In.
type WellnessScores struct {
	WellnessScore int    `json:"wellnessScore"`
	BurnoutRisk   string `json:"burnoutRisk"`
	NeedsSupport  bool   `json:"needsSupport"`
	SelfCareCount int    `json:"selfCareCount"`
}

func (WellnessScores) scoredKind() model.Kind { return model.KindWellnessCheckIn }

// ScoreWellness scores a Wellness Check-In.
func ScoreWellness(w model.WellnessCheckIn) WellnessScores {
	stress := rating(w.StressLevel)
	energy := rating(w.EnergyLevel)
	selfCare := nonEmpty(w.SelfCareActivities)

	score := (energy + (MaxScore + 1 - stress)) / 2
	score += lookup(sleepAdjust, w.SleepQuality, 0)
	if selfCare >= 2 {
		score++
	}

	risk := RiskLow
	switch {
	case stress >= 8 && (energy <= 3 || w.SleepQuality == "poor"):
		risk = RiskHigh
	case stress >= 6 || energy <= 4:
		risk = RiskModerate
	}

	return WellnessScores{
		WellnessScore: clamp(score),
		BurnoutRisk:   risk,
		NeedsSupport:  risk == RiskHigh || w.EmotionalState == "overwhelmed" || w.EmotionalState == "numb",
		SelfCareCount: selfCare,
	}
}
