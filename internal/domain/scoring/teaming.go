package scoring

import "github.com/okian/interpretreflect/internal/domain/model"

var (
	collaborationPoints = map[string]int{
		"excellent": 5,
		"good":      4,
		"fair":      2,
		"poor":      1,
	}
	handoffPoints = map[string]int{
		"seamless":     3,
		"minor_issues": 2,
		"major_issues": 0,
	}
	resolutionScores = map[string]int{
		"fully":      10,
		"partially":  6,
		"unresolved": 2,
	}
)

// TeamingScores are the derived values of a Team Reflection.
type TeamingScores struct {
	TeamSynergyScore   int              `json:"teamSynergyScore"`
	CommunicationScore int              `json:"communicationScore"`
	Conflict           *ConflictOutcome `json:"conflict,omitempty"`
}

// ConflictOutcome is present only when a conflict arose.
type ConflictOutcome struct {
	ResolutionScore int  `json:"resolutionScore"`
	NeedsFollowUp   bool `json:"needsFollowUp"`
}

func (TeamingScores) scoredKind() model.Kind { return model.KindTeamingReflection }

// ScoreTeaming scores a Team Reflection.
func ScoreTeaming(t model.TeamingReflection) TeamingScores {
	synergy := lookup(collaborationPoints, t.CollaborationQuality, 0) +
		lookup(handoffPoints, t.HandoffSmoothness, 0)
	if textLen(t.WhatWorked) > 0 {
		synergy++
	}
	if textLen(t.Improvements) > 0 {
		synergy++
	}

	s := TeamingScores{CommunicationScore: rating(t.CommunicationRating)}
	if t.ConflictsArose {
		resolution := lookup(resolutionScores, t.ConflictResolved, 4)
		if t.ConflictResolved == "unresolved" {
			synergy -= 2
		}
		s.Conflict = &ConflictOutcome{
			ResolutionScore: resolution,
			NeedsFollowUp:   resolution < 6,
		}
	}
	s.TeamSynergyScore = clamp(synergy)
	return s
}
