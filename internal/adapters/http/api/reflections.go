package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/model"
)

const (
	defaultListLimit     = 50
	defaultInsightWindow = 30
	maxBodyBytes         = 1 << 20
)

// SubmitRequest is the body of POST /reflections and POST /scores.
type SubmitRequest struct {
	Kind   string          `json:"kind"`
	Fields json.RawMessage `json:"fields"`
}

// SubmitResponse reports the outcome of a save. Saves never fail with a
// bare status; the body always says whether it succeeded.
type SubmitResponse struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Code      string         `json:"code,omitempty"`
	Duplicate bool           `json:"duplicate,omitempty"`
	ID        string         `json:"id,omitempty"`
	Kind      model.Kind     `json:"kind,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ReflectionsHandler serves reflection reads and writes.
type ReflectionsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewReflectionsHandler creates a new reflections handler.
func NewReflectionsHandler(deps Dependencies, maxLimit int) *ReflectionsHandler {
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &ReflectionsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleReflections dispatches GET and POST /reflections.
func (h *ReflectionsHandler) HandleReflections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.submit(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ReflectionsHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_reflections"
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	window, err := queryWindow(r, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	writeJSON(w, http.StatusOK, h.deps.Reflections(r.Context(), limit, window))
}

func decodeSubmit(w http.ResponseWriter, r *http.Request) (SubmitRequest, error) {
	var req SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if strings.TrimSpace(req.Kind) == "" {
		return req, errors.New("kind is required")
	}
	if len(req.Fields) == 0 {
		req.Fields = json.RawMessage("{}")
	}
	return req, nil
}

func (h *ReflectionsHandler) submit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_reflection"
	req, err := decodeSubmit(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, SubmitResponse{
			Error: WrapKind(op, ErrBadRequest, err).Error(),
			Code:  "bad_request",
		})
		return
	}

	ctx := r.Context()
	userID := auth.UserIDFrom(ctx)
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.deps.SeenAndRecord(ctx, userID, key) {
		writeJSON(w, http.StatusOK, SubmitResponse{Success: true, Duplicate: true, Kind: model.Kind(req.Kind)})
		return
	}

	entry, err := h.deps.SubmitReflection(ctx, req.Kind, req.Fields)
	if err != nil {
		if key != "" {
			h.deps.Unrecord(ctx, userID, key)
		}
		status, code := classify(err)
		writeJSON(w, status, SubmitResponse{
			Error: Wrap(op, err).Error(),
			Code:  code,
			Kind:  entry.Kind,
			Data:  entry.Data,
		})
		return
	}
	writeJSON(w, http.StatusCreated, SubmitResponse{
		Success: true,
		ID:      entry.ID,
		Kind:    entry.Kind,
		Data:    entry.Data,
	})
}

// HandlePreviewScores handles POST /scores: score and assemble without
// saving.
func (h *ReflectionsHandler) HandlePreviewScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview_scores"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, err := decodeSubmit(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.PreviewScores(r.Context(), req.Kind, req.Fields)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleStats handles GET /reflections/stats.
func (h *ReflectionsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ReflectionStats(r.Context()))
}

// HandleInsights handles GET /reflections/insights?window=<days>.
func (h *ReflectionsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	const op = "api.reflection_insights"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	window, err := queryWindow(r, defaultInsightWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ReflectionInsights(r.Context(), window))
}
