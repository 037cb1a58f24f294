package seed

import (
	"github.com/nomis52/demoseed/modules"
	"github.com/nomis52/demoseed/workflow"
)

// Predicate decides from the run's activation whether a step applies.
type Predicate func(modules.Activation) bool

// Newly holds when any of the modules was switched on by this run.
func Newly(names ...string) Predicate {
	return func(a modules.Activation) bool {
		for _, n := range names {
			if a.Newly(n) {
				return true
			}
		}
		return false
	}
}

// Active holds when any of the modules is active after activation.
func Active(names ...string) Predicate {
	return func(a modules.Activation) bool {
		for _, n := range names {
			if a.Active(n) {
				return true
			}
		}
		return false
	}
}

// Either holds when any of the predicates holds.
func Either(ps ...Predicate) Predicate {
	return func(a modules.Activation) bool {
		for _, p := range ps {
			if p(a) {
				return true
			}
		}
		return false
	}
}

// Always holds unconditionally.
func Always(modules.Activation) bool { return true }

// Step is one row of the gate table.
type Step struct {
	Activity workflow.Activity
	When     Predicate
}

// Steps is the gate table of a run, in execution order. Newly gated steps
// create master data the first time a module is switched on; Active gated
// steps mature documents on every run.
type Steps struct {
	Activate          *Activate
	Parties           *Parties
	Company           *Company
	Chart             *Chart
	CompanyPost       *CompanyPost
	Products          *Products
	PaymentTerms      *PaymentTerms
	PointOfSale       *PointOfSale
	SalePOS           *SalePOS
	Sales             *Sales
	Purchases         *Purchases
	Stock             *Stock
	InvoiceMaturation *InvoiceMaturation
	Vouchers          *Vouchers
	Payments          *Payments
	Statements        *Statements
	Projects          *Projects
	Timesheets        *Timesheets
	Production        *Production
	Languages         *Languages
}

// NewSteps allocates one activity per step.
func NewSteps() *Steps {
	return &Steps{
		Activate:          &Activate{},
		Parties:           &Parties{},
		Company:           &Company{},
		Chart:             &Chart{},
		CompanyPost:       &CompanyPost{},
		Products:          &Products{},
		PaymentTerms:      &PaymentTerms{},
		PointOfSale:       &PointOfSale{},
		SalePOS:           &SalePOS{},
		Sales:             &Sales{},
		Purchases:         &Purchases{},
		Stock:             &Stock{},
		InvoiceMaturation: &InvoiceMaturation{},
		Vouchers:          &Vouchers{},
		Payments:          &Payments{},
		Statements:        &Statements{},
		Projects:          &Projects{},
		Timesheets:        &Timesheets{},
		Production:        &Production{},
		Languages:         &Languages{},
	}
}

// Table returns the steps with their gates.
func (s *Steps) Table() []Step {
	return []Step{
		{s.Activate, Always},
		{s.Parties, Either(Newly("party", "sale", "purchase"), Active("stock"))},
		{s.Company, Active("company")},
		{s.Chart, Newly("account")},
		{s.CompanyPost, Newly("company")},
		{s.Products, Newly("product")},
		{s.PaymentTerms, Newly("account_invoice")},
		{s.PointOfSale, Newly("account_invoice_ar")},
		{s.SalePOS, Newly("sale_pos_ar")},
		{s.Sales, Newly("sale")},
		{s.Purchases, Newly("purchase")},
		{s.Stock, Newly("stock")},
		{s.InvoiceMaturation, Active("account_invoice")},
		{s.Vouchers, Newly("account_voucher_ar")},
		{s.Payments, Newly("account_payment")},
		{s.Statements, Newly("account_statement")},
		{s.Projects, Active("project")},
		{s.Timesheets, Active("timesheet")},
		{s.Production, Newly("production")},
		{s.Languages, Always},
	}
}

// Register adds every step to the orchestrator. Gates read the activation
// once the Activate step has run.
func (s *Steps) Register(o *workflow.Orchestrator) error {
	for _, step := range s.Table() {
		when := step.When
		if err := o.AddGated(step.Activity, func() bool {
			return when(s.Activate.Activation())
		}); err != nil {
			return err
		}
	}
	return nil
}

// Order lists the step ids in execution order.
func Order() []workflow.ActivityID {
	table := NewSteps().Table()
	ids := make([]workflow.ActivityID, 0, len(table))
	for _, step := range table {
		ids = append(ids, workflow.GetActivityID(step.Activity))
	}
	return ids
}
