package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/workflow"
)

// Parties provisions the demonstration customers and supplier.
type Parties struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner

	ran       bool
	customers []bos.ID
	suppliers []bos.ID
}

func (a *Parties) Init() error {
	return nil
}

func (a *Parties) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		a.StatusLine.Set("ensuring parties")
		var err error
		created := 0
		if a.customers, err = a.ensure(ctx, customers, &created); err != nil {
			return err
		}
		if a.suppliers, err = a.ensure(ctx, suppliers, &created); err != nil {
			return err
		}
		a.ran = true
		a.Logger.Info("parties ready", "customers", len(a.customers), "suppliers", len(a.suppliers), "created", created)
		a.StatusLine.Setf("%d customers, %d suppliers (%d created)", len(a.customers), len(a.suppliers), created)
		return nil
	})
}

func (a *Parties) ensure(ctx context.Context, parties []provision.Party, created *int) ([]bos.ID, error) {
	ids := make([]bos.ID, 0, len(parties))
	for _, p := range parties {
		id, ok, err := a.Provisioner.Parties().Ensure(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			*created++
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Customers returns the demonstration customers. When the step did not run
// the ones already present on the platform are looked up.
func (a *Parties) Customers(ctx context.Context) ([]bos.ID, error) {
	if a.ran {
		return a.customers, nil
	}
	return a.lookup(ctx, customers)
}

// Suppliers returns the demonstration suppliers, see Customers.
func (a *Parties) Suppliers(ctx context.Context) ([]bos.ID, error) {
	if a.ran {
		return a.suppliers, nil
	}
	return a.lookup(ctx, suppliers)
}

func (a *Parties) lookup(ctx context.Context, parties []provision.Party) ([]bos.ID, error) {
	var ids []bos.ID
	for _, p := range parties {
		id, err := a.Provisioner.Parties().ByName(ctx, p.Name)
		if errors.Is(err, bos.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var _ workflow.Activity = (*Parties)(nil)
