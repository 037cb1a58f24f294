package activity

import (
	"fmt"
	"log/slog"

	"github.com/nomis52/demoseed/workflow"
)

// StatusLine is injected into every seeding step. Each update is logged at
// info level, so it also lands in the step's captured logs, and recorded in
// the handler when there is one.
type StatusLine struct {
	id      workflow.ActivityID
	logger  *slog.Logger
	handler *StatusHandler
}

// NewStatusLine returns a status line for the step id. handler may be nil,
// in which case updates are only logged.
func NewStatusLine(id workflow.ActivityID, logger *slog.Logger, handler *StatusHandler) *StatusLine {
	return &StatusLine{id: id, logger: logger, handler: handler}
}

func (sl *StatusLine) Set(status string) {
	sl.logger.Info(status, "activity", sl.id.ShortString())
	if sl.handler == nil {
		return
	}
	sl.handler.Set(sl.id, status)
}

func (sl *StatusLine) Setf(format string, args ...any) {
	sl.Set(fmt.Sprintf(format, args...))
}

// Progress reports e.g. "production days 3/40".
func (sl *StatusLine) Progress(what string, done, total int) {
	sl.Set(fmt.Sprintf("%s %d/%d", what, done, total))
}
