package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggingConfig
		wantErr bool
	}{
		{"json stdout", config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, false},
		{"text stderr", config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, false},
		{"defaults", config.LoggingConfig{}, false},
		{"upper case", config.LoggingConfig{Level: "WARN", Format: "TEXT"}, false},
		{"invalid level", config.LoggingConfig{Level: "verbose"}, true},
		{"invalid format", config.LoggingConfig{Format: "xml"}, true},
		{"unwritable file", config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "demoseed.log")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closeLog, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.NoError(t, closeLog())
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demoseed.log")
	logger, closeLog, err := New(config.LoggingConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug("seeding", "database", "demo")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"seeding"`)
	assert.Contains(t, string(data), `"database":"demo"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForRun(t *testing.T) {
	collector := NewLogCollector()
	base := slog.New(NewCapturingHandler(Discard().Handler(), collector, "run"))

	logger, id := ForRun(base)
	_, err := uuid.Parse(id)
	require.NoError(t, err, "run ids are uuids")

	Component(logger, "schedule").Info("tick")
	entries := collector.Entries("run")
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].Attributes[RunIDKey])
	assert.Equal(t, "schedule", entries[0].Attributes[ComponentKey])

	_, other := ForRun(base)
	assert.NotEqual(t, id, other)
}
