package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingLoggerHook(t *testing.T) {
	collector := NewLogCollector()
	hook := NewCapturingLoggerHook(collector)
	assert.Same(t, collector, hook.Collector())

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil)).With("run_id", "r1")

	hook.LoggerForActivity(base, "seed.Parties").Info("parties created", "count", 4)
	hook.LoggerForActivity(base, "seed.Company").Warn("company exists")

	parties := collector.Entries("seed.Parties")
	require.Len(t, parties, 1)
	assert.Equal(t, int64(4), parties[0].Attributes["count"])

	company := collector.Entries("seed.Company")
	require.Len(t, company, 1)
	assert.Equal(t, "WARN", company[0].Level)

	assert.Contains(t, buf.String(), "run_id=r1", "base attributes reach the output")
	assert.Equal(t, []string{"seed.Parties", "seed.Company"}, collector.Activities())
}

var _ LoggerHook = (*CapturingLoggerHook)(nil)
