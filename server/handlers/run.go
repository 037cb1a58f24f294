package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/demoseed/server/runner"
)

// SourceAPI is the source recorded for runs started by POST /run.
const SourceAPI = "api"

// RunHandler starts a seeding run in the background and answers 202. The
// run picks up whatever configuration is loaded at that moment. Progress is
// visible on /api/status.
type RunHandler struct {
	logger *slog.Logger
	runner SeedRunner
}

func NewRunHandler(logger *slog.Logger, r SeedRunner) *RunHandler {
	return &RunHandler{logger: logger, runner: r}
}

func (h *RunHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	err := h.runner.Run(SourceAPI)
	if err == nil {
		w.Header().Set("Location", "/api/status")
		w.WriteHeader(http.StatusAccepted)
		return
	}
	status := http.StatusInternalServerError
	if errors.Is(err, runner.ErrRunInProgress) {
		status = http.StatusConflict
	} else {
		h.logger.Error("failed to start run", "error", err)
	}
	writeError(w, status, err)
}
