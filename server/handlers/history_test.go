package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/logging"
	"github.com/nomis52/demoseed/server/runner"
)

type mockHistory struct {
	runs []runner.RunStatus
}

func (m *mockHistory) History() []runner.RunStatus {
	history := make([]runner.RunStatus, len(m.runs))
	for i, run := range m.runs {
		history[i] = run.Summary()
	}
	return history
}

func (m *mockHistory) Get(id string) (runner.RunStatus, error) {
	for _, run := range m.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return runner.RunStatus{}, fmt.Errorf("%w %q", runner.ErrUnknownRun, id)
}

func sampleHistory() *mockHistory {
	started := time.Date(2024, 6, 14, 3, 0, 0, 0, time.UTC)
	ended := started.Add(2 * time.Minute)
	return &mockHistory{runs: []runner.RunStatus{{
		ID:        "run-1",
		State:     runner.RunStateIdle,
		Source:    "cron",
		StartedAt: &started,
		EndedAt:   &ended,
		Activities: []runner.ActivityExecution{{
			Module: "seed",
			Type:   "Sales",
			State:  "completed",
			Status: "12 sales",
			Logs:   []logging.LogEntry{{Level: "INFO", Message: "replayed sales"}},
		}},
	}}}
}

func serve(h http.Handler, pattern, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHistoryHandler(t *testing.T) {
	w := serve(NewHistoryHandler(sampleHistory()), "GET /history", "/history")
	require.Equal(t, http.StatusOK, w.Code)

	var history []runner.RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "run-1", history[0].ID)
	assert.Equal(t, "12 sales", history[0].Activities[0].Status)
	assert.Empty(t, history[0].Activities[0].Logs)
}

func TestHistoryHandler_Limit(t *testing.T) {
	tests := []struct {
		query    string
		wantCode int
		wantRuns int
	}{
		{query: "?limit=0", wantCode: http.StatusOK, wantRuns: 0},
		{query: "?limit=5", wantCode: http.StatusOK, wantRuns: 1},
		{query: "?limit=-1", wantCode: http.StatusBadRequest},
		{query: "?limit=all", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(NewHistoryHandler(sampleHistory()), "GET /history", "/history"+tt.query)
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, w.Body.String(), "invalid limit")
				return
			}
			var history []runner.RunStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
			assert.Len(t, history, tt.wantRuns)
		})
	}
}

func TestRunDetailHandler(t *testing.T) {
	h := NewRunDetailHandler(sampleHistory())

	w := serve(h, "GET /history/{id}", "/history/run-1")
	require.Equal(t, http.StatusOK, w.Code)
	var run runner.RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	require.Len(t, run.Activities[0].Logs, 1)
	assert.Equal(t, "replayed sales", run.Activities[0].Logs[0].Message)
	assert.Equal(t, runner.RunStateIdle, run.State)

	w = serve(h, "GET /history/{id}", "/history/run-2")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "run-2")
}
