package scoring

import "github.com/okian/interpretreflect/internal/domain/model"

var (
	moralDistressByWeight = map[string]int{
		"light":    2,
		"moderate": 5,
		"heavy":    8,
		"crushing": 10,
	}
	residueByArea = map[string]int{
		"nothing":       1,
		"focus":         4,
		"mood":          5,
		"relationships": 6,
		"sleep":         8,
		"everything":    10,
	}
)

// CompassScores are the derived values of a Compass Check.
type CompassScores struct {
	MoralDistressLevel  int           `json:"moralDistressLevel"`
	ResidueIntensity    int           `json:"residueIntensity"`
	SelfCompassionScore int           `json:"selfCompassionScore"`
	ValuesAtStake       int           `json:"valuesAtStake"`
	PlanMade            bool          `json:"planMade"`
	Support             *SupportNotes `json:"support,omitempty"`
}

// SupportNotes is present only when the check signals a need for support.
type SupportNotes struct {
	Recommended bool   `json:"recommended"`
	Reason      string `json:"reason"`
}

func (CompassScores) scoredKind() model.Kind { return model.KindCompassCheck }

// ScoreCompassCheck scores a Compass Check.
func ScoreCompassCheck(c model.CompassCheck) CompassScores {
	s := CompassScores{
		MoralDistressLevel:  lookup(moralDistressByWeight, c.WeightLevel, MinScore),
		ResidueIntensity:    lookup(residueByArea, c.Affecting, MinScore),
		SelfCompassionScore: selfCompassion(c.SelfCompassionNote),
		ValuesAtStake:       nonEmpty(c.ValuesInConflict),
		PlanMade:            textLen(c.NextStep) > 0,
	}
	switch {
	case c.NeedsSupport:
		s.Support = &SupportNotes{Recommended: true, Reason: "requested"}
	case s.MoralDistressLevel >= 8 && s.ResidueIntensity >= 8:
		s.Support = &SupportNotes{Recommended: true, Reason: "high distress and residue"}
	}
	return s
}

func selfCompassion(note string) int {
	n := textLen(note)
	switch {
	case n == 0:
		return 2
	case n < 50:
		return 4
	case n < 150:
		return 7
	default:
		return 9
	}
}
