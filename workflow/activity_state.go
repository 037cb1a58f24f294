package workflow

// ActivityState is where an activity is in a run. The orchestrator moves
// every activity NotStarted -> Pending once Init succeeds, then each one to
// Running and on to Completed, Disabled or Skipped.
type ActivityState int

const (
	NotStarted ActivityState = iota // validation or Init failed, or Execute never called
	Pending
	Running
	Skipped   // an earlier activity failed or the run was cancelled
	Disabled  // gate closed; dependents still run
	Completed // ran; Result.Error holds the outcome
)

var stateNames = [...]string{
	NotStarted: "not_started",
	Pending:    "pending",
	Running:    "running",
	Skipped:    "skipped",
	Disabled:   "disabled",
	Completed:  "completed",
}

func (s ActivityState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
