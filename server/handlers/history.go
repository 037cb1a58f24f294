package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nomis52/demoseed/server/runner"
)

// HistoryHandler lists finished runs, most recent first, without their
// logs. ?limit=N keeps only the N most recent.
type HistoryHandler struct {
	provider HistoryProvider
}

func NewHistoryHandler(provider HistoryProvider) *HistoryHandler {
	return &HistoryHandler{provider: provider}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	runs := h.provider.History()
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", s))
			return
		}
		runs = runs[:min(limit, len(runs))]
	}
	writeJSON(w, http.StatusOK, runs)
}

// RunDetailHandler serves GET /history/{id}: one finished run with the logs
// of each step.
type RunDetailHandler struct {
	provider HistoryProvider
}

func NewRunDetailHandler(provider HistoryProvider) *RunDetailHandler {
	return &RunDetailHandler{provider: provider}
}

func (h *RunDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing run id"))
		return
	}

	run, err := h.provider.Get(id)
	switch {
	case errors.Is(err, runner.ErrUnknownRun):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, run)
	}
}
