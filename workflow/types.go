package workflow

import (
	"context"
)

// Activity is a single step of a workflow.
//
// Init is called once every dependency and config value has been injected,
// before any activity executes. Execute performs the work and returns nil on
// success.
type Activity interface {
	// Init validates injected configuration and dependencies.
	Init() error

	// Execute performs the activity's work.
	Execute(ctx context.Context) error
}

// Gate decides, just before an activity would run, whether it runs at all.
// Gates are evaluated after every earlier activity has finished, so they may
// inspect the results those activities left behind.
type Gate func() bool

// Always is the gate of activities that run unconditionally.
func Always() bool { return true }

// Result is the outcome of an activity.
//
// Results exist from AddActivity onwards in the NotStarted state and move
// through Pending and Running to one of Completed, Disabled or Skipped.
type Result struct {
	State ActivityState

	// Error is the error returned by Execute, or the reason an activity was
	// skipped or never started.
	Error error
}

// IsSuccess reports whether the activity ran and returned nil.
func (r *Result) IsSuccess() bool {
	return r.State == Completed && r.Error == nil
}

// IsSatisfied reports whether dependents of the activity may run: it either
// succeeded or was disabled by its gate.
func (r *Result) IsSatisfied() bool {
	return r.IsSuccess() || r.State == Disabled
}
