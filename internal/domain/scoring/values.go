package scoring

import "github.com/okian/interpretreflect/internal/domain/model"

var strainByReason = map[string]int{
	"none":     0,
	"choice":   1,
	"policy":   2,
	"pressure": 3,
}

// ValuesScores are the derived values of a Values Alignment reflection.
type ValuesScores struct {
	AlignmentScore  int                `json:"alignmentScore"`
	IntegrityStrain int                `json:"integrityStrain"`
	Compromise      *CompromiseSummary `json:"compromise,omitempty"`
}

// CompromiseSummary is present only when some value was compromised.
type CompromiseSummary struct {
	Count  int    `json:"count"`
	Reason string `json:"reason,omitempty"`
}

func (ValuesScores) scoredKind() model.Kind { return model.KindValuesAlignment }

// ScoreValuesAlignment scores a Values Alignment reflection.
func ScoreValuesAlignment(v model.ValuesAlignment) ValuesScores {
	honored := nonEmpty(v.ValuesHonored)
	compromised := nonEmpty(v.ValuesCompromised)

	alignment := rating(v.AlignmentRating)
	switch {
	case honored > compromised:
		alignment++
	case compromised > honored:
		alignment--
	}

	s := ValuesScores{
		AlignmentScore:  clamp(alignment),
		IntegrityStrain: clamp(compromised*2 + lookup(strainByReason, v.CompromiseReason, 0)),
	}
	if compromised > 0 {
		s.Compromise = &CompromiseSummary{Count: compromised, Reason: v.CompromiseReason}
	}
	return s
}
