package handlers

import (
	"net/http"
	"strconv"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// GetEvents handles GET /api/v1/events?after=&limit=. Events come back in
// sequence order; callers page by passing the last sequence number they saw.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	var after int64
	if s := r.URL.Query().Get("after"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_argument",
				Message: "after must be a non-negative integer",
			})
			return
		}
		after = v
	}

	limit := defaultEventsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_argument",
				Message: "limit must be a positive integer",
			})
			return
		}
		if v > maxEventsLimit {
			v = maxEventsLimit
		}
		limit = v
	}

	evs, err := h.eng.Events(r.Context(), after, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, evs)
}
