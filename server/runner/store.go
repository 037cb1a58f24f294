package runner

import "errors"

// ErrUnknownRun is returned for a run id that is not in the history.
var ErrUnknownRun = errors.New("unknown run")

// StateStore keeps the history of finished runs.
type StateStore interface {
	// History returns run summaries, most recent first.
	History() []RunStatus
	// Get returns a run with its logs.
	Get(id string) (RunStatus, error)
	// Save records a finished run.
	Save(RunStatus) error
}
