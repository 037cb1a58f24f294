// Package modules activates platform modules and reports which of them were
// switched on by the current run.
package modules

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/nomis52/demoseed/bos"
)

const (
	modelModule     = "ir.module"
	modelConfigItem = "ir.module.config_wizard.item"
	wizardUpgrade   = "ir.module.activate_upgrade"

	stateActivated  = "activated"
	stateToActivate = "to activate"
	stateDone       = "done"
)

// Activation is the outcome of an activation request.
type Activation struct {
	// ToActivate lists the modules this run switched on, including
	// dependencies the platform pulled in.
	ToActivate []string
	// Activated lists every active module after the run.
	Activated []string
}

// Newly reports whether the module was switched on by this run.
func (a Activation) Newly(name string) bool {
	return slices.Contains(a.ToActivate, name)
}

// Active reports whether the module is active after this run, whether it
// was switched on now or earlier.
func (a Activation) Active(name string) bool {
	return slices.Contains(a.Activated, name)
}

// Driver drives the platform's module system.
type Driver struct {
	svc    bos.Service
	logger *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger.With("component", "modules")
	}
}

// NewDriver creates a Driver.
func NewDriver(svc bos.Service, opts ...Option) *Driver {
	d := &Driver{
		svc:    svc,
		logger: slog.Default().With("component", "modules"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Activate switches on the named modules and their dependencies. Modules
// that are already active are upgraded instead. Pending configuration
// checklist items are marked done so that they do not block the platform.
// Unknown names are ignored, as the platform does.
func (d *Driver) Activate(ctx context.Context, names []string) (Activation, error) {
	h := bos.Model(d.svc, modelModule)
	records, err := h.Browse(ctx, bos.Where("name", bos.In, names), "name", "state")
	if err != nil {
		return Activation{}, err
	}

	var activate, upgrade []bos.ID
	for _, rec := range records {
		if rec.String("state") == stateActivated {
			upgrade = append(upgrade, rec.ID())
		} else {
			activate = append(activate, rec.ID())
		}
	}
	if err := d.click(ctx, "upgrade", upgrade); err != nil {
		return Activation{}, err
	}
	if err := d.click(ctx, "activate", activate); err != nil {
		return Activation{}, err
	}

	toActivate, err := d.namesIn(ctx, stateToActivate)
	if err != nil {
		return Activation{}, err
	}
	if err := d.runUpgrade(ctx); err != nil {
		return Activation{}, err
	}
	if err := d.drainConfigItems(ctx); err != nil {
		return Activation{}, err
	}
	activated, err := d.namesIn(ctx, stateActivated)
	if err != nil {
		return Activation{}, err
	}

	d.logger.Info("activated modules", "requested", len(names), "to_activate", toActivate, "active", len(activated))
	return Activation{ToActivate: toActivate, Activated: activated}, nil
}

// Upgrade re-runs the upgrade of the named modules, e.g. to load
// translations once a language has been made translatable.
func (d *Driver) Upgrade(ctx context.Context, names []string) error {
	ids, err := bos.Model(d.svc, modelModule).Find(ctx, bos.Where("name", bos.In, names))
	if err != nil {
		return err
	}
	if err := d.click(ctx, "upgrade", ids); err != nil {
		return err
	}
	return d.runUpgrade(ctx)
}

func (d *Driver) click(ctx context.Context, button string, ids []bos.ID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := bos.Model(d.svc, modelModule).Call(ctx, button, ids...)
	return err
}

func (d *Driver) runUpgrade(ctx context.Context) error {
	w, err := bos.StartWizard(ctx, d.svc, wizardUpgrade)
	if err != nil {
		return err
	}
	defer w.Close(ctx)
	if err := w.Execute(ctx, "upgrade"); err != nil {
		return fmt.Errorf("upgrading modules: %w", err)
	}
	return nil
}

func (d *Driver) drainConfigItems(ctx context.Context) error {
	h := bos.Model(d.svc, modelConfigItem)
	ids, err := h.Find(ctx, bos.Where("state", bos.NotEq, stateDone))
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		d.logger.Debug("completing configuration items", "count", len(ids))
	}
	return h.Write(ctx, ids, bos.Record{"state": stateDone})
}

func (d *Driver) namesIn(ctx context.Context, state string) ([]string, error) {
	records, err := bos.Model(d.svc, modelModule).Browse(ctx, bos.Where("state", bos.Eq, state), "name")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.String("name"))
	}
	sort.Strings(names)
	return names, nil
}
