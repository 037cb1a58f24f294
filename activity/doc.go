// Package activity lets seeding steps report what they are doing.
//
// A StatusLine is injected into every step. Each Set logs the message
// through the step's logger and, when the run collects statuses, stores it
// in a StatusHandler keyed by activity id. The last status of each step is
// what the CLI prints in its summary and what the schedule server shows
// while a run is in progress:
//
//	type Sales struct {
//	    StatusLine *activity.StatusLine
//	}
//
//	func (a *Sales) Execute(ctx context.Context) error {
//	    return activity.CaptureError(a.StatusLine, func() error {
//	        a.StatusLine.Progress("sales", 3, 40)
//	        return nil
//	    })
//	}
//
// CaptureError replaces the status with "failed: <error>" when the step
// fails, so the summary shows why a run stopped.
package activity
