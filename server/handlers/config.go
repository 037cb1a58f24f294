package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ConfigHandler shows the configuration the next run will use, as YAML
// with the passwords masked.
type ConfigHandler struct {
	provider ConfigProvider
}

func NewConfigHandler(provider ConfigProvider) *ConfigHandler {
	return &ConfigHandler{provider: provider}
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	cfg := h.provider.Config()
	if cfg == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no configuration loaded"))
		return
	}
	// Marshal before writing so a failure still gets a proper status.
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("encoding configuration: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(out)
}
