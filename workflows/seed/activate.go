package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/modules"
	"github.com/nomis52/demoseed/workflow"
)

// Activate switches on the requested modules. Its outcome feeds every gate.
type Activate struct {
	Logger     *slog.Logger
	StatusLine *activity.StatusLine
	Driver     *modules.Driver

	Modules []string `config:"modules"`

	activation modules.Activation
}

func (a *Activate) Init() error {
	if len(a.Modules) == 0 {
		return fmt.Errorf("no modules requested")
	}
	return nil
}

func (a *Activate) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		a.StatusLine.Setf("activating %d modules", len(a.Modules))
		act, err := a.Driver.Activate(ctx, a.Modules)
		if err != nil {
			return err
		}
		a.activation = act
		a.StatusLine.Setf("%d newly activated, %d active", len(act.ToActivate), len(act.Activated))
		return nil
	})
}

// Activation returns the outcome of the activation, zero before it ran.
func (a *Activate) Activation() modules.Activation {
	return a.activation
}

var _ workflow.Activity = (*Activate)(nil)
