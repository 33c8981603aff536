// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Kind tags which form produced a reflection. The set is open: new forms
// add kinds without a schema change.
type Kind string

// Known reflection kinds.
const (
	KindCompassCheck          Kind = "compass_check"
	KindMentoringReflection   Kind = "mentoring_reflection"
	KindTeamingReflection     Kind = "teaming_reflection"
	KindWellnessCheckIn       Kind = "wellness_checkin"
	KindPostAssignmentDebrief Kind = "post_assignment_debrief"
	KindValuesAlignment       Kind = "values_alignment"
)

// KnownKinds lists every kind with a typed payload.
var KnownKinds = []Kind{
	KindCompassCheck,
	KindMentoringReflection,
	KindTeamingReflection,
	KindWellnessCheckIn,
	KindPostAssignmentDebrief,
	KindValuesAlignment,
}

// Validation errors.
var (
	// ErrInvalidKind is returned for kinds that are not snake_case tags.
	ErrInvalidKind = errors.New("invalid reflection kind")
	// ErrInvalidPayload is returned when form fields do not fit their kind.
	ErrInvalidPayload = errors.New("invalid reflection fields")
)

var kindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ParseKind validates a kind tag.
func ParseKind(s string) (Kind, error) {
	if !kindPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return Kind(s), nil
}

// Known reports whether k has a typed payload.
func (k Kind) Known() bool {
	for _, known := range KnownKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Entry is one stored reflection.
type Entry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Kind      Kind           `json:"entry_kind"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Record is an assembled reflection ready to be saved: raw fields and
// computed scores merged into one flat map.
type Record struct {
	Kind Kind           `json:"kind"`
	Data map[string]any `json:"data"`
}

// Canonical returns the JSON encoding of r. Map keys are sorted by
// encoding/json, so identical records encode to identical bytes.
func (r Record) Canonical() ([]byte, error) {
	return json.Marshal(r)
}
