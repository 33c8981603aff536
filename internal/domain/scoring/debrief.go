package scoring

import "github.com/okian/interpretreflect/internal/domain/model"

var (
	cognitiveLoadByDifficulty = map[string]int{
		"easy":         2,
		"moderate":     5,
		"challenging":  7,
		"overwhelming": 9,
	}
	residueByImpact = map[string]int{
		"minimal":     1,
		"moderate":    4,
		"significant": 7,
		"severe":      10,
	}
	highStakesAssignments = map[string]bool{
		"medical": true,
		"legal":   true,
	}
)

// DebriefScores are the derived values of a Post-Assignment Debrief.
type DebriefScores struct {
	CognitiveLoad    int  `json:"cognitiveLoad"`
	EmotionalResidue int  `json:"emotionalResidue"`
	LearningScore    int  `json:"learningScore"`
	SelfAssessment   int  `json:"selfAssessment"`
	RecoveryNeeded   bool `json:"recoveryNeeded"`
}

func (DebriefScores) scoredKind() model.Kind { return model.KindPostAssignmentDebrief }

// ScoreDebrief scores a Post-Assignment Debrief.
func ScoreDebrief(d model.PostAssignmentDebrief) DebriefScores {
	load := lookup(cognitiveLoadByDifficulty, d.Difficulty, MinScore)
	if highStakesAssignments[d.AssignmentType] {
		load++
	}
	load = clamp(load)
	residue := lookup(residueByImpact, d.EmotionalImpact, MinScore)

	learning := 0
	switch n := textLen(d.LessonsLearned); {
	case n >= 50:
		learning += 4
	case n > 0:
		learning += 2
	}
	if textLen(d.WhatWentWell) > 0 {
		learning += 2
	}
	if textLen(d.Challenges) > 0 {
		learning += 2
	}

	return DebriefScores{
		CognitiveLoad:    load,
		EmotionalResidue: residue,
		LearningScore:    clamp(learning),
		SelfAssessment:   rating(d.PerformanceRating),
		RecoveryNeeded:   residue >= 7 || load >= 9 || d.ContentDistressing,
	}
}
