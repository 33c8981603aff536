// Package scoring computes derived scores for submitted reflection forms.
//
// Every scorer is a pure function of its payload. Categorical answers are
// looked up in literal tables, free text contributes by presence and length,
// and every score on the display range is clamped to [MinScore, MaxScore].
package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/okian/interpretreflect/internal/domain/model"
)

// Display range for bounded scores.
const (
	MinScore = 1
	MaxScore = 10

	// neutralScore is used when a rating was left blank.
	neutralScore = 5
)

// Scores is the result of scoring one payload.
type Scores interface {
	scoredKind() model.Kind
}

// Score dispatches to the scorer for the payload's kind. Unknown kinds have
// no scorer and return nil.
func Score(p model.Payload) Scores {
	switch v := p.(type) {
	case model.CompassCheck:
		return ScoreCompassCheck(v)
	case model.MentoringReflection:
		return ScoreMentoring(v)
	case model.TeamingReflection:
		return ScoreTeaming(v)
	case model.WellnessCheckIn:
		return ScoreWellness(v)
	case model.PostAssignmentDebrief:
		return ScoreDebrief(v)
	case model.ValuesAlignment:
		return ScoreValuesAlignment(v)
	default:
		return nil
	}
}

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// rating clamps a 1..10 self rating, treating 0 (not answered) as neutral.
func rating(v int) int {
	if v == 0 {
		return neutralScore
	}
	return clamp(v)
}

func textLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func lookup(table map[string]int, key string, fallback int) int {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

func nonEmpty(items []string) int {
	n := 0
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			n++
		}
	}
	return n
}
