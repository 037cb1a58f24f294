package workflow

import "context"

// Workflow is what callers hold on to: the seeding run, or any other set of
// activities. Results stay readable after Execute returns, including for
// activities that never ran.
type Workflow interface {
	Execute(ctx context.Context) error
	GetAllResults() map[ActivityID]*Result
}

var _ Workflow = (*Orchestrator)(nil)
