package api

import (
	"net/http"
)

const defaultTrendWeeks = 12

// WellnessHandler serves activity and wellness trend reads.
type WellnessHandler struct {
	deps Dependencies
}

// NewWellnessHandler creates a new wellness handler.
func NewWellnessHandler(deps Dependencies) *WellnessHandler {
	return &WellnessHandler{deps: deps}
}

type streakResponse struct {
	Streak int `json:"streak"`
}

// HandleStreak handles GET /activity/streak.
func (h *WellnessHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, streakResponse{Streak: h.deps.ActivityStreak(r.Context())})
}

// HandleTrend handles GET /wellness/trend?weeks=N.
func (h *WellnessHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.wellness_trend"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	weeks, err := queryInt(r, "weeks", defaultTrendWeeks)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.WellnessTrend(r.Context(), weeks))
}
