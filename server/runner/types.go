package runner

import (
	"fmt"
	"time"

	"github.com/nomis52/demoseed/logging"
)

// RunState is the state of the runner.
type RunState int

const (
	// RunStateIdle means no seeding run is in progress.
	RunStateIdle RunState = iota
	// RunStateRunning means a seeding run is in progress.
	RunStateRunning
)

func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "idle"
	case RunStateRunning:
		return "running"
	default:
		return "unknown"
	}
}

func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RunState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = RunStateIdle
	case "running":
		*s = RunStateRunning
	default:
		return fmt.Errorf("unknown run state %q", b)
	}
	return nil
}

// ActivityExecution is what one step did during a run.
type ActivityExecution struct {
	Module string `json:"module"`
	Type   string `json:"type"`
	State  string `json:"state"`
	// Status is the last status line the step reported.
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`

	Logs        []logging.LogEntry `json:"logs,omitempty"`
	DroppedLogs int                `json:"dropped_logs,omitempty"`
}

// RunStatus describes the current or a past seeding run.
type RunStatus struct {
	// ID is the run id carried by every log record of the run.
	ID     string   `json:"id,omitempty"`
	State  RunState `json:"state"`
	Source string   `json:"source,omitempty"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	// Error is the run error, empty on success.
	Error string `json:"error,omitempty"`

	Activities []ActivityExecution `json:"activities,omitempty"`
}

// Duration returns how long a finished run took, or zero.
func (s RunStatus) Duration() time.Duration {
	if s.StartedAt == nil || s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(*s.StartedAt)
}

// Summary returns a copy of s without the captured logs.
func (s RunStatus) Summary() RunStatus {
	if s.Activities == nil {
		return s
	}
	activities := make([]ActivityExecution, len(s.Activities))
	for i, a := range s.Activities {
		a.Logs = nil
		activities[i] = a
	}
	s.Activities = activities
	return s
}
