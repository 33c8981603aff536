package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the typed body of one form submission.
type Payload interface {
	Kind() Kind
}

// Categorical answer sets. Scoring tables are keyed by these literals.
var (
	WeightLevels          = []string{"light", "moderate", "heavy", "crushing"}
	AffectingAreas        = []string{"nothing", "focus", "mood", "relationships", "sleep", "everything"}
	GoalsMetLevels        = []string{"fully", "mostly", "partially", "not_at_all"}
	CollaborationLevels   = []string{"excellent", "good", "fair", "poor"}
	HandoffLevels         = []string{"seamless", "minor_issues", "major_issues"}
	ResolutionLevels      = []string{"fully", "partially", "unresolved"}
	SleepQualities        = []string{"poor", "fair", "good", "excellent"}
	EmotionalStates       = []string{"calm", "content", "anxious", "irritable", "overwhelmed", "numb"}
	AssignmentTypes       = []string{"medical", "legal", "educational", "community", "conference", "other"}
	DifficultyLevels      = []string{"easy", "moderate", "challenging", "overwhelming"}
	EmotionalImpactLevels = []string{"minimal", "moderate", "significant", "severe"}
	CompromiseReasons     = []string{"none", "choice", "policy", "pressure"}
)

// CompassCheck captures a moral-distress check after a difficult assignment.
type CompassCheck struct {
	Situation          string   `json:"situation,omitempty"`
	ValuesInConflict   []string `json:"valuesInConflict,omitempty"`
	WeightLevel        string   `json:"weightLevel"`
	Affecting          string   `json:"affecting"`
	SelfCompassionNote string   `json:"selfCompassionNote,omitempty"`
	NextStep           string   `json:"nextStep,omitempty"`
	NeedsSupport       bool     `json:"needsSupport,omitempty"`
}

// Kind returns KindCompassCheck.
func (CompassCheck) Kind() Kind { return KindCompassCheck }

// MentoringReflection captures one mentoring session.
type MentoringReflection struct {
	MentorRole       string   `json:"mentorRole,omitempty"`
	SessionFocus     string   `json:"sessionFocus,omitempty"`
	GoalsMet         string   `json:"goalsMet"`
	KeyInsights      string   `json:"keyInsights,omitempty"`
	FeedbackReceived bool     `json:"feedbackReceived,omitempty"`
	ConfidenceBefore int      `json:"confidenceBefore,omitempty"`
	ConfidenceAfter  int      `json:"confidenceAfter,omitempty"`
	NextSteps        []string `json:"nextSteps,omitempty"`
	Challenges       string   `json:"challenges,omitempty"`
}

// Kind returns KindMentoringReflection.
func (MentoringReflection) Kind() Kind { return KindMentoringReflection }

// TeamingReflection captures a team (co-interpreting) assignment.
type TeamingReflection struct {
	TeamSize             int    `json:"teamSize,omitempty"`
	CollaborationQuality string `json:"collaborationQuality"`
	CommunicationRating  int    `json:"communicationRating,omitempty"`
	HandoffSmoothness    string `json:"handoffSmoothness"`
	ConflictsArose       bool   `json:"conflictsArose"`
	ConflictDescription  string `json:"conflictDescription,omitempty"`
	ConflictResolved     string `json:"conflictResolved,omitempty"`
	WhatWorked           string `json:"whatWorked,omitempty"`
	Improvements         string `json:"improvements,omitempty"`
}

// Kind returns KindTeamingReflection.
func (TeamingReflection) Kind() Kind { return KindTeamingReflection }

// WellnessCheckIn captures a periodic self-assessment.
type WellnessCheckIn struct {
	StressLevel        int      `json:"stressLevel,omitempty"`
	EnergyLevel        int      `json:"energyLevel,omitempty"`
	SleepQuality       string   `json:"sleepQuality"`
	EmotionalState     string   `json:"emotionalState,omitempty"`
	Feelings           []string `json:"feelings,omitempty"`
	SelfCareActivities []string `json:"selfCareActivities,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// Kind returns KindWellnessCheckIn.
func (WellnessCheckIn) Kind() Kind { return KindWellnessCheckIn }

// PostAssignmentDebrief captures the debrief after an assignment.
type PostAssignmentDebrief struct {
	AssignmentType     string `json:"assignmentType,omitempty"`
	Difficulty         string `json:"difficulty"`
	PerformanceRating  int    `json:"performanceRating,omitempty"`
	EmotionalImpact    string `json:"emotionalImpact"`
	StressLevel        int    `json:"stressLevel,omitempty"`
	ContentDistressing bool   `json:"contentDistressing,omitempty"`
	WhatWentWell       string `json:"whatWentWell,omitempty"`
	Challenges         string `json:"challenges,omitempty"`
	LessonsLearned     string `json:"lessonsLearned,omitempty"`
}

// Kind returns KindPostAssignmentDebrief.
func (PostAssignmentDebrief) Kind() Kind { return KindPostAssignmentDebrief }

// ValuesAlignment captures how well a period of work matched personal values.
type ValuesAlignment struct {
	CoreValues        []string `json:"coreValues,omitempty"`
	ValuesHonored     []string `json:"valuesHonored,omitempty"`
	ValuesCompromised []string `json:"valuesCompromised,omitempty"`
	AlignmentRating   int      `json:"alignmentRating,omitempty"`
	CompromiseReason  string   `json:"compromiseReason,omitempty"`
	Situation         string   `json:"situation,omitempty"`
	Reflection        string   `json:"reflection,omitempty"`
}

// Kind returns KindValuesAlignment.
func (ValuesAlignment) Kind() Kind { return KindValuesAlignment }

// Unknown holds fields of a kind without a typed payload.
type Unknown struct {
	Tag    Kind
	Fields map[string]any
}

// Kind returns the tag the submission arrived with.
func (u Unknown) Kind() Kind { return u.Tag }

// DecodePayload decodes raw form fields into the payload type for kind.
// Unknown kinds decode into an opaque map.
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage(`{}`)
	}
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindCompassCheck:
		p, err = decodeInto[CompassCheck](raw)
	case KindMentoringReflection:
		p, err = decodeInto[MentoringReflection](raw)
	case KindTeamingReflection:
		p, err = decodeInto[TeamingReflection](raw)
	case KindWellnessCheckIn:
		p, err = decodeInto[WellnessCheckIn](raw)
	case KindPostAssignmentDebrief:
		p, err = decodeInto[PostAssignmentDebrief](raw)
	case KindValuesAlignment:
		p, err = decodeInto[ValuesAlignment](raw)
	default:
		fields := map[string]any{}
		err = json.Unmarshal(raw, &fields)
		p = Unknown{Tag: kind, Fields: fields}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s fields: %w", ErrInvalidPayload, kind, err)
	}
	return p, nil
}

func decodeInto[T Payload](raw json.RawMessage) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
