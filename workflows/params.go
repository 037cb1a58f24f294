// Package workflows assembles runnable workflows out of the generic
// orchestrator. The seed subpackage holds the demoseed run itself; this
// package holds what every workflow shares with its activities.
package workflows

import (
	"log/slog"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/metrics"
	"github.com/nomis52/demoseed/workflow"
)

// Params are the ambient dependencies handed to every activity.
type Params struct {
	Logger *slog.Logger
	// LoggerFactory, when set, gives each activity its own logger; the
	// runner uses it to capture logs per step.
	LoggerFactory workflow.Factory[*slog.Logger]
	// Optional.
	StatusCollection *activity.StatusHandler
	Registry         metrics.Registry
}

// InjectInto provides *slog.Logger, *activity.StatusLine and, when set,
// metrics.Registry to the orchestrator's activities. A step's status line
// logs through the same logger the step receives.
func (p Params) InjectInto(o *workflow.Orchestrator) {
	loggers := p.LoggerFactory
	if loggers == nil {
		loggers = workflow.Shared(p.Logger)
	}
	workflow.Provide(o, loggers)
	workflow.Provide(o, func(id workflow.ActivityID) *activity.StatusLine {
		return activity.NewStatusLine(id, loggers(id), p.StatusCollection)
	})
	if p.Registry != nil {
		workflow.Provide(o, workflow.Shared(p.Registry))
	}
}
