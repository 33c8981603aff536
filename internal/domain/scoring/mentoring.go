package scoring

import "github.com/okian/interpretreflect/internal/domain/model"

var goalsMetPoints = map[string]int{
	"fully":      4,
	"mostly":     3,
	"partially":  2,
	"not_at_all": 0,
}

// MentoringScores are the derived values of a Mentoring Reflection.
type MentoringScores struct {
	GrowthScore      int  `json:"growthScore"`
	ConfidenceChange int  `json:"confidenceChange"`
	ActionItemCount  int  `json:"actionItemCount"`
	HasActionPlan    bool `json:"hasActionPlan"`
}

func (MentoringScores) scoredKind() model.Kind { return model.KindMentoringReflection }

// ScoreMentoring scores a Mentoring Reflection.
func ScoreMentoring(m model.MentoringReflection) MentoringScores {
	growth := lookup(goalsMetPoints, m.GoalsMet, 0)
	switch n := textLen(m.KeyInsights); {
	case n >= 100:
		growth += 3
	case n > 0:
		growth++
	}
	if m.FeedbackReceived {
		growth++
	}
	actions := nonEmpty(m.NextSteps)
	switch {
	case actions >= 3:
		growth += 2
	case actions > 0:
		growth++
	}

	change := 0
	if m.ConfidenceBefore > 0 && m.ConfidenceAfter > 0 {
		change = clamp(m.ConfidenceAfter) - clamp(m.ConfidenceBefore)
	}

	return MentoringScores{
		GrowthScore:      clamp(growth),
		ConfidenceChange: change,
		ActionItemCount:  actions,
		HasActionPlan:    actions > 0,
	}
}
