package logging

import (
	"log/slog"
)

// LoggerHook derives the logger handed to one activity from the base
// logger.
type LoggerHook interface {
	LoggerForActivity(base *slog.Logger, activityID string) *slog.Logger
}

// CapturingLoggerHook sends every activity's records to a LogCollector.
type CapturingLoggerHook struct {
	collector *LogCollector
}

// NewCapturingLoggerHook creates a hook capturing into collector.
func NewCapturingLoggerHook(collector *LogCollector) *CapturingLoggerHook {
	return &CapturingLoggerHook{collector: collector}
}

func (h *CapturingLoggerHook) LoggerForActivity(base *slog.Logger, activityID string) *slog.Logger {
	return slog.New(NewCapturingHandler(base.Handler(), h.collector, activityID))
}

// Collector returns the collector the hook writes to.
func (h *CapturingLoggerHook) Collector() *LogCollector {
	return h.collector
}
