package handlers

import "net/http"

// HealthHandler answers liveness probes. It reports unavailable until a
// configuration has been loaded, since no run could start without one.
type HealthHandler struct {
	config ConfigProvider
}

func NewHealthHandler(config ConfigProvider) *HealthHandler {
	return &HealthHandler{config: config}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if h.config.Config() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no configuration"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}
