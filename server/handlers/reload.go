package handlers

import (
	"log/slog"
	"net/http"
)

// ReloadHandler re-reads something the server loaded from disk: the
// configuration file or the run history directory. A run in progress keeps
// the configuration it started with.
type ReloadHandler struct {
	logger   *slog.Logger
	what     string
	reloader Reloader
}

func NewReloadHandler(logger *slog.Logger, what string, reloader Reloader) *ReloadHandler {
	return &ReloadHandler{logger: logger.With("reload", what), what: what, reloader: reloader}
}

func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	err := h.reloader.Reload()
	if err != nil {
		h.logger.Error("reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to reload " + h.what + ": " + err.Error()})
		return
	}
	h.logger.Info("reloaded")
	w.WriteHeader(http.StatusNoContent)
}
