package seed

import (
	"context"
	"log/slog"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/workflow"
)

// Company configures the main company the first time the company module is
// switched on and looks it up by party name on later runs.
type Company struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Session     *Session
	Activate    *Activate

	Demo config.DemoConfig `config:"demo"`

	id bos.ID
}

func (a *Company) Init() error {
	return nil
}

func (a *Company) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		companies := a.Provisioner.Companies()
		if !a.Activate.Activation().Newly("company") {
			a.StatusLine.Setf("looking up %s", a.Demo.CompanyName)
			id, err := companies.ByPartyName(ctx, a.Demo.CompanyName)
			if err != nil {
				return err
			}
			a.id = id
			a.StatusLine.Setf("using company %d", id)
			return nil
		}

		a.StatusLine.Setf("configuring %s", a.Demo.CompanyName)
		id, _, err := companies.Configure(ctx, a.mainCompany())
		if err != nil {
			return err
		}
		a.id = id
		if err := a.Session.Reload(ctx, a.Provisioner.Service()); err != nil {
			return err
		}
		a.Logger.Info("company configured", "company", id, "party", a.Demo.CompanyName)
		a.StatusLine.Setf("configured company %d", id)
		return nil
	})
}

func (a *Company) mainCompany() provision.Company {
	return provision.Company{
		Party: provision.Party{
			Name:      a.Demo.CompanyName,
			TaxID:     a.Demo.CompanyTaxID,
			TaxRegime: regimeRegistered,
		},
		Currency: a.Demo.Currency,
	}
}

// ID returns the main company, or 0 when the company module is not active.
func (a *Company) ID() bos.ID {
	return a.id
}

// CompanyPost adds the employees of the main company and the subsidiary
// companies with their own staff.
type CompanyPost struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Company     *Company

	Demo config.DemoConfig `config:"demo"`
}

func (a *CompanyPost) Init() error {
	return nil
}

func (a *CompanyPost) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		company := a.Company.ID()
		a.StatusLine.Set("adding employees")
		if err := a.employ(ctx, company, mainEmployees); err != nil {
			return err
		}

		a.StatusLine.Set("adding subsidiaries")
		companies := a.Provisioner.Companies()
		parent, _, err := companies.Ensure(ctx, provision.Company{Party: subsidiary, Currency: a.Demo.Currency})
		if err != nil {
			return err
		}
		child, _, err := companies.Ensure(ctx, provision.Company{Party: branch, Currency: a.Demo.Currency, Parent: parent})
		if err != nil {
			return err
		}
		if err := a.employ(ctx, child, branchEmployees); err != nil {
			return err
		}
		a.StatusLine.Setf("%d employees in 3 companies", len(mainEmployees)+len(branchEmployees))
		return nil
	})
}

func (a *CompanyPost) employ(ctx context.Context, company bos.ID, people []provision.Party) error {
	for _, p := range people {
		if _, _, err := a.Provisioner.Employees().Ensure(ctx, p, company); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ workflow.Activity = (*Company)(nil)
	_ workflow.Activity = (*CompanyPost)(nil)
)
