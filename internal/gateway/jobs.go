package gateway

import (
	"time"

	"github.com/okian/interpretreflect/internal/domain/model"
)

// Background job types.
const (
	JobWellnessExtract = "wellness.extract"
	JobActivityRecord  = "activity.record"
)

// ExtractJob asks for wellness signals to be pulled out of one save.
// SaveID is stable across retries of the job.
type ExtractJob struct {
	SaveID  string         `json:"save_id"`
	UserID  string         `json:"user_id"`
	Kind    model.Kind     `json:"entry_kind"`
	Data    map[string]any `json:"data"`
	SavedAt time.Time      `json:"saved_at"`
}

// ActivityJob marks the day of a save active.
type ActivityJob struct {
	UserID  string    `json:"user_id"`
	SavedAt time.Time `json:"saved_at"`
}
