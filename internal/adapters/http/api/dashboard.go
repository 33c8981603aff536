package api

import (
	"net/http"
)

const defaultDashboardRecent = 5

// dashboardHandler serves the combined landing page figures.
type dashboardHandler struct {
	deps Dependencies
}

func newDashboardHandler(deps Dependencies) *dashboardHandler {
	return &dashboardHandler{deps: deps}
}

// HandleDashboard handles GET /dashboard?recent=N&weeks=N.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	recent, err := queryInt(r, "recent", defaultDashboardRecent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	weeks, err := queryInt(r, "weeks", defaultTrendWeeks)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Dashboard(r.Context(), recent, weeks))
}
