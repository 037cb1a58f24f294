package provision

import (
	"context"
	"errors"

	"github.com/nomis52/demoseed/bos"
)

// Wizard names.
const (
	WizardCompanyConfig = "company.company.config"
	WizardCreateChart   = "account.create_chart"
)

// CompanyConfig is a company configuration session before its first phase.
// The phases are company, then add.
type CompanyConfig struct {
	w *bos.Wizard
}

// StartCompanyConfig opens a company configuration session.
func StartCompanyConfig(ctx context.Context, svc bos.Service) (*CompanyConfig, error) {
	w, err := bos.StartWizard(ctx, svc, WizardCompanyConfig)
	if err != nil {
		return nil, err
	}
	return &CompanyConfig{w: w}, nil
}

// Company runs the company phase and returns the company form.
func (c *CompanyConfig) Company(ctx context.Context) (*CompanyForm, error) {
	if err := c.w.Execute(ctx, "company"); err != nil {
		closeQuietly(ctx, c.w)
		return nil, err
	}
	return &CompanyForm{w: c.w}, nil
}

// CompanyForm is the company phase of a company configuration session.
type CompanyForm struct {
	w *bos.Wizard
}

// Add creates the company owned by party and ends the session.
func (f *CompanyForm) Add(ctx context.Context, party, currency bos.ID) error {
	defer closeQuietly(ctx, f.w)
	f.w.Form["party"] = party
	f.w.Form["currency"] = currency
	return f.w.Execute(ctx, "add")
}

func (f *CompanyForm) abort(ctx context.Context) {
	closeQuietly(ctx, f.w)
}

// ChartOfAccounts is a chart creation session before its first phase.
// The phases are account, create_account, then create_properties.
type ChartOfAccounts struct {
	w *bos.Wizard
}

// StartChartOfAccounts opens a chart of accounts creation session.
func StartChartOfAccounts(ctx context.Context, svc bos.Service) (*ChartOfAccounts, error) {
	w, err := bos.StartWizard(ctx, svc, WizardCreateChart)
	if err != nil {
		return nil, err
	}
	return &ChartOfAccounts{w: w}, nil
}

// Account runs the account phase and returns the template selection form.
func (c *ChartOfAccounts) Account(ctx context.Context) (*ChartAccountForm, error) {
	if err := c.w.Execute(ctx, "account"); err != nil {
		closeQuietly(ctx, c.w)
		return nil, err
	}
	return &ChartAccountForm{w: c.w}, nil
}

// ChartAccountForm selects the template and company of a new chart.
type ChartAccountForm struct {
	w *bos.Wizard
}

// CreateAccount instantiates template for company.
func (f *ChartAccountForm) CreateAccount(ctx context.Context, template, company bos.ID) (*ChartProperties, error) {
	f.w.Form["account_template"] = template
	f.w.Form["company"] = company
	if err := f.w.Execute(ctx, "create_account"); err != nil {
		closeQuietly(ctx, f.w)
		return nil, err
	}
	return &ChartProperties{w: f.w}, nil
}

// ChartProperties sets the default accounts of a freshly created chart.
type ChartProperties struct {
	w *bos.Wizard
}

// CreateProperties stores the default receivable and payable accounts and
// ends the session.
func (p *ChartProperties) CreateProperties(ctx context.Context, receivable, payable bos.ID) error {
	defer closeQuietly(ctx, p.w)
	p.w.Form["account_receivable"] = receivable
	p.w.Form["account_payable"] = payable
	return p.w.Execute(ctx, "create_properties")
}

func (p *ChartProperties) abort(ctx context.Context) {
	closeQuietly(ctx, p.w)
}

// closeQuietly releases a session whose outcome is already decided.
func closeQuietly(ctx context.Context, w *bos.Wizard) {
	_ = w.Close(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, bos.ErrNotFound)
}
