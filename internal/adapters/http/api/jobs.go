package api

import (
	"net/http"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/mq/outbox"
)

const defaultDeadLimit = 100

// DeadJob is the operator view of a dead outbox job. Payloads carry
// reflection text and are never exposed.
type DeadJob struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	Status        outbox.Status `json:"status"`
	Attempts      int           `json:"attempts"`
	LastError     string        `json:"last_error,omitempty"`
	NextAttemptAt time.Time     `json:"next_attempt_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func deadJobView(j outbox.Job) DeadJob {
	return DeadJob{
		ID:            j.ID,
		Type:          j.Type,
		Status:        j.Status,
		Attempts:      j.Attempts,
		LastError:     j.LastError,
		NextAttemptAt: j.NextAttemptAt,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

// JobsHandler exposes background job state for operators.
type JobsHandler struct {
	deps Dependencies
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(deps Dependencies) *JobsHandler {
	return &JobsHandler{deps: deps}
}

// HandleDeadJobs handles GET /outbox/dead?limit=N. Callers must hold the
// operator token.
func (h *JobsHandler) HandleDeadJobs(w http.ResponseWriter, r *http.Request) {
	const op = "api.dead_jobs"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, err := queryInt(r, "limit", defaultDeadLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	jobs, err := h.deps.DeadJobs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	views := make([]DeadJob, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, deadJobView(j))
	}
	writeJSON(w, http.StatusOK, views)
}
