package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/bos/memstore"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/metrics"
)

type staticConfig struct {
	cfg *config.Config
}

func (s staticConfig) Config() *config.Config {
	return s.cfg
}

func partyConfig() staticConfig {
	cfg := &config.Config{
		Target:  config.TargetConfig{URL: "http://platform.test", Database: "demo"},
		Modules: []string{"party"},
		Demo:    config.DemoConfig{Seed: 42, Today: "2024-06-14"},
	}
	cfg.SetDefaults()
	return staticConfig{cfg: cfg}
}

func platform(store *memstore.Store) Connector {
	return func(context.Context, *config.Config, *slog.Logger) (bos.Service, error) {
		return store, nil
	}
}

func findExecution(run RunStatus, typ string) *ActivityExecution {
	for i := range run.Activities {
		if run.Activities[i].Type == typ {
			return &run.Activities[i]
		}
	}
	return nil
}

func TestRunner_Run(t *testing.T) {
	store := memstore.NewPlatform()
	r, err := New(discardLogger(), partyConfig(), platform(store))
	require.NoError(t, err)
	defer r.Stop()

	require.NoError(t, r.Run("api"))
	r.Wait()

	status := r.Status()
	assert.Equal(t, RunStateIdle, status.State)
	assert.Empty(t, status.Error)
	assert.Equal(t, "api", status.Source)
	require.NotNil(t, status.EndedAt)
	assert.False(t, r.IsRunning())
	assert.Equal(t, 4, store.Count("party.party"))

	parties := findExecution(status, "Parties")
	require.NotNil(t, parties)
	assert.Equal(t, "completed", parties.State)
	assert.Equal(t, "3 customers, 1 suppliers (4 created)", parties.Status)

	var messages []string
	for _, e := range parties.Logs {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "parties ready")
	assert.Contains(t, messages, "ensuring parties", "status lines are captured too")

	company := findExecution(status, "Company")
	require.NotNil(t, company)
	assert.Equal(t, "disabled", company.State)

	history := r.History()
	require.Len(t, history, 1)
	assert.Equal(t, status.ID, history[0].ID)
	assert.Nil(t, findExecution(history[0], "Parties").Logs)

	run, err := r.Get(status.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, findExecution(run, "Parties").Logs)
}

func TestRunner_RejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	connect := func(ctx context.Context, _ *config.Config, _ *slog.Logger) (bos.Service, error) {
		<-release
		return memstore.NewPlatform(), nil
	}
	r, err := New(discardLogger(), partyConfig(), connect)
	require.NoError(t, err)

	require.NoError(t, r.Run("cron"))
	assert.True(t, r.IsRunning())
	assert.Equal(t, RunStateRunning, r.Status().State)
	assert.ErrorIs(t, r.Run("api"), ErrRunInProgress)

	close(release)
	r.Wait()
	assert.False(t, r.IsRunning())
	assert.Len(t, r.History(), 1)

	require.NoError(t, r.Run("api"), "a finished runner accepts a new run")
	r.Wait()
	assert.Len(t, r.History(), 2)
}

func TestRunner_ConnectError(t *testing.T) {
	connect := func(context.Context, *config.Config, *slog.Logger) (bos.Service, error) {
		return nil, errors.New("login refused")
	}
	r, err := New(discardLogger(), partyConfig(), connect)
	require.NoError(t, err)

	require.NoError(t, r.Run("api"))
	r.Wait()

	status := r.Status()
	assert.Contains(t, status.Error, "login refused")
	assert.Contains(t, status.Error, "http://platform.test")
	assert.Empty(t, status.Activities)

	history := r.History()
	require.Len(t, history, 1)
	assert.Equal(t, status.Error, history[0].Error)
}

func TestRunner_NoConfig(t *testing.T) {
	r, err := New(discardLogger(), staticConfig{}, platform(memstore.NewPlatform()))
	require.NoError(t, err)

	require.NoError(t, r.Run("api"))
	r.Wait()
	assert.Equal(t, "no configuration available", r.Status().Error)
}

func TestRunner_Metrics(t *testing.T) {
	reg, err := metrics.NewScrapeRegistry(metrics.WithNamespace("demoseed"))
	require.NoError(t, err)

	r, err := New(discardLogger(), partyConfig(), platform(memstore.NewPlatform()), WithMetricsRegistry(reg))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, r.Run("api"))
		r.Wait()
	}

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `demoseed_runs_total{result="success"} 2`)
	assert.Contains(t, body, "demoseed_last_run_success 1")
	assert.Contains(t, body, `demoseed_activity_state{activity="Parties",state="disabled"} 1`, "the second run finds party active")
}

func TestRunner_DiskHistory(t *testing.T) {
	dir := t.TempDir()
	disk, err := NewDiskStore(dir, 5, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	r, err := New(discardLogger(), partyConfig(), platform(memstore.NewPlatform()), WithStateStore(disk))
	require.NoError(t, err)
	require.NoError(t, r.Run("cron"))
	r.Wait()

	reloaded, err := NewDiskStore(dir, 5, discardLogger())
	require.NoError(t, err)
	history := reloaded.History()
	require.Len(t, history, 1)
	assert.Equal(t, "cron", history[0].Source)
}
