package bos

import (
	"context"
	"fmt"
)

// Service is the Business Object Service. All calls are blocking and are
// issued sequentially by a single writer. Implementations report workflow
// precondition failures as errors wrapping ErrTransition and any other
// service-side failure as *RemoteError.
type Service interface {
	// Search returns the IDs of the records of model matching domain,
	// ordered by ID.
	Search(ctx context.Context, model string, domain Domain) ([]ID, error)

	// Read returns the requested fields (all fields when none are given)
	// of the records, in the order of ids. Each record carries its "id".
	Read(ctx context.Context, model string, ids []ID, fields ...string) ([]Record, error)

	// Create persists new records and returns their IDs in order.
	Create(ctx context.Context, model string, values ...Record) ([]ID, error)

	// Write updates the given attributes on all records.
	Write(ctx context.Context, model string, ids []ID, values Record) error

	// Call invokes a named workflow action or button on the records.
	Call(ctx context.Context, model, method string, ids []ID) (any, error)

	// WizardCreate opens a session of the named wizard and returns its ID.
	WizardCreate(ctx context.Context, name string) (ID, error)

	// WizardExecute submits the form and runs the named state (phase).
	// It returns the next state and the form values the server proposes
	// for it; the next state is "end" once the wizard has finished.
	WizardExecute(ctx context.Context, name string, id ID, state string, form Record, targets []ID) (string, Record, error)

	// WizardDelete releases the session.
	WizardDelete(ctx context.Context, name string, id ID) error

	// Preferences returns the current user's context (company, language…).
	Preferences(ctx context.Context) (Record, error)
}

// Handle is a queryable, creatable view of one model.
type Handle struct {
	svc  Service
	name string
}

// Model resolves a model name to a Handle.
func Model(svc Service, name string) Handle {
	return Handle{svc: svc, name: name}
}

// Name returns the model name.
func (h Handle) Name() string {
	return h.name
}

// Find returns the IDs matching domain.
func (h Handle) Find(ctx context.Context, domain Domain) ([]ID, error) {
	ids, err := h.svc.Search(ctx, h.name, domain)
	if err != nil {
		return nil, fmt.Errorf("searching %s %s: %w", h.name, domain, err)
	}
	return ids, nil
}

// FindOne asserts that exactly one record matches domain.
// It returns a *LookupError wrapping ErrNotFound or ErrAmbiguous otherwise.
func (h Handle) FindOne(ctx context.Context, domain Domain) (ID, error) {
	ids, err := h.Find(ctx, domain)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, &LookupError{Model: h.name, Domain: domain, Matches: len(ids)}
	}
	return ids[0], nil
}

// Browse reads the records matching domain.
func (h Handle) Browse(ctx context.Context, domain Domain, fields ...string) ([]Record, error) {
	ids, err := h.Find(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return h.Read(ctx, ids, fields...)
}

// Read returns the records with the given IDs.
func (h Handle) Read(ctx context.Context, ids []ID, fields ...string) ([]Record, error) {
	records, err := h.svc.Read(ctx, h.name, ids, fields...)
	if err != nil {
		return nil, fmt.Errorf("reading %s %v: %w", h.name, ids, err)
	}
	return records, nil
}

// Get reads a single record.
func (h Handle) Get(ctx context.Context, id ID, fields ...string) (Record, error) {
	records, err := h.Read(ctx, []ID{id}, fields...)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, &LookupError{Model: h.name, Domain: Where("id", Eq, id), Matches: len(records)}
	}
	return records[0], nil
}

// Create persists one record and returns its ID.
func (h Handle) Create(ctx context.Context, values Record) (ID, error) {
	ids, err := h.svc.Create(ctx, h.name, values)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", h.name, err)
	}
	if len(ids) != 1 {
		return 0, &RemoteError{Method: h.name + ".create", Message: fmt.Sprintf("expected 1 id, got %d", len(ids))}
	}
	return ids[0], nil
}

// Write updates records.
func (h Handle) Write(ctx context.Context, ids []ID, values Record) error {
	if len(ids) == 0 {
		return nil
	}
	if err := h.svc.Write(ctx, h.name, ids, values); err != nil {
		return fmt.Errorf("writing %s %v: %w", h.name, ids, err)
	}
	return nil
}

// Transition applies a named workflow action to documents.
func (h Handle) Transition(ctx context.Context, transition string, ids ...ID) error {
	_, err := h.Call(ctx, transition, ids...)
	return err
}

// Call invokes a named method and returns its result.
func (h Handle) Call(ctx context.Context, method string, ids ...ID) (any, error) {
	res, err := h.svc.Call(ctx, h.name, method, ids)
	if err != nil {
		return nil, fmt.Errorf("%s.%s %v: %w", h.name, method, ids, err)
	}
	return res, nil
}
