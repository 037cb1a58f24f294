package bos

import (
	"context"
	"fmt"
)

// EndState is the state a wizard reports once it has finished.
const EndState = "end"

// Wizard is one session of a multi-phase server-side procedure. Callers set
// fields on Form between phases; Execute submits the form and runs a phase.
//
// Wizard is the untyped building block. Callers that know a wizard's phases
// wrap it in a builder whose methods return the next phase, see
// provision.CompanyConfig and modules.Driver.
type Wizard struct {
	svc     Service
	name    string
	id      ID
	targets []ID

	// Form holds the values submitted with the next phase.
	Form Record
	// State is the state the server reported after the last phase.
	State string
}

// StartWizard opens a wizard session on the given target records.
func StartWizard(ctx context.Context, svc Service, name string, targets ...ID) (*Wizard, error) {
	id, err := svc.WizardCreate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("starting wizard %s: %w", name, err)
	}
	return &Wizard{
		svc:     svc,
		name:    name,
		id:      id,
		targets: targets,
		Form:    Record{},
	}, nil
}

// Name returns the wizard name.
func (w *Wizard) Name() string {
	return w.name
}

// Execute runs a phase. Values proposed by the server for the next phase
// are merged into Form without overwriting values the caller already set.
func (w *Wizard) Execute(ctx context.Context, state string) error {
	next, proposed, err := w.svc.WizardExecute(ctx, w.name, w.id, state, w.Form, w.targets)
	if err != nil {
		return fmt.Errorf("wizard %s phase %s: %w", w.name, state, err)
	}
	for k, v := range proposed {
		if _, set := w.Form[k]; !set {
			w.Form[k] = v
		}
	}
	w.State = next
	return nil
}

// Close releases the session.
func (w *Wizard) Close(ctx context.Context) error {
	if err := w.svc.WizardDelete(ctx, w.name, w.id); err != nil {
		return fmt.Errorf("closing wizard %s: %w", w.name, err)
	}
	return nil
}
