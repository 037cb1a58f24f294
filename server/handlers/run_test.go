package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nomis52/demoseed/server/runner"
)

type mockRunner struct {
	err     error
	sources []string
}

func (m *mockRunner) Run(source string) error {
	m.sources = append(m.sources, source)
	return m.err
}

func TestRunHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "accepted", wantCode: http.StatusAccepted},
		{name: "busy", err: runner.ErrRunInProgress, wantCode: http.StatusConflict, wantBody: "already in progress"},
		{name: "failure", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantBody: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockRunner{err: tt.err}
			w := httptest.NewRecorder()
			NewRunHandler(discardLogger(), m).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, []string{SourceAPI}, m.sources)
			if tt.err == nil {
				assert.Equal(t, "/api/status", w.Header().Get("Location"))
			}
			if tt.wantBody != "" {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}
