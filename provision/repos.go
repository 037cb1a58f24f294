package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomis52/demoseed/bos"
)

// Platform model names.
const (
	ModelCountry      = "country.country"
	ModelSubdivision  = "country.subdivision"
	ModelCurrency     = "currency.currency"
	ModelUnit         = "product.uom"
	ModelParty        = "party.party"
	ModelCompany      = "company.company"
	ModelEmployee     = "company.employee"
	ModelAccount      = "account.account"
	ModelTemplateTree = "account.account.template"
	ModelSequence     = "ir.sequence"
	ModelStrictSeq    = "ir.sequence.strict"
	ModelCategory     = "product.category"
	ModelTemplate     = "product.template"
	ModelProduct      = "product.product"
	ModelPaymentTerm  = "account.invoice.payment_term"
	ModelJournal      = "account.journal"
)

// Lookups resolves reference data shipped with the platform.
type Lookups struct {
	p *Provisioner
}

// Lookups returns the reference data repository.
func (p *Provisioner) Lookups() Lookups {
	return Lookups{p: p}
}

// Country returns the country with the given ISO code.
func (l Lookups) Country(ctx context.Context, code string) (bos.ID, error) {
	return l.p.cached(ctx, ModelCountry, bos.Where("code", bos.Eq, code))
}

// Subdivision returns the subdivision with the given ISO code, e.g. "AR-C".
func (l Lookups) Subdivision(ctx context.Context, code string) (bos.ID, error) {
	return l.p.cached(ctx, ModelSubdivision, bos.Where("code", bos.Eq, code))
}

// Currency returns the currency with the given ISO code.
func (l Lookups) Currency(ctx context.Context, code string) (bos.ID, error) {
	return l.p.cached(ctx, ModelCurrency, bos.Where("code", bos.Eq, code))
}

// Unit returns the unit of measure with the given name.
func (l Lookups) Unit(ctx context.Context, name string) (bos.ID, error) {
	return l.p.cached(ctx, ModelUnit, bos.Where("name", bos.Eq, name))
}

// Address is a postal address. Country and Subdivision are ISO codes.
type Address struct {
	Street      string
	Zip         string
	City        string
	Country     string
	Subdivision string
}

// Contact is a contact mechanism such as a phone number or website.
type Contact struct {
	Type  string
	Value string
}

// Party describes a person or organization.
type Party struct {
	Name      string
	TaxID     string
	TaxRegime string
	Addresses []Address
	Contacts  []Contact
}

// Parties provisions party.party records keyed by name.
type Parties struct {
	p *Provisioner
}

// Parties returns the party repository.
func (p *Provisioner) Parties() Parties {
	return Parties{p: p}
}

// Ensure returns the party with the given name, creating it with its
// addresses and contact mechanisms when missing.
func (r Parties) Ensure(ctx context.Context, party Party) (bos.ID, bool, error) {
	return r.p.Ensure(ctx, ModelParty, bos.Where("name", bos.Eq, party.Name), func(ctx context.Context) (bos.Record, error) {
		return r.values(ctx, party)
	})
}

// ByName returns the party with the given name.
func (r Parties) ByName(ctx context.Context, name string) (bos.ID, error) {
	return r.p.FindOne(ctx, ModelParty, bos.Where("name", bos.Eq, name))
}

// All returns every party.
func (r Parties) All(ctx context.Context) ([]bos.ID, error) {
	return bos.Model(r.p.svc, ModelParty).Find(ctx, nil)
}

// SetPaymentTerm makes term the customer and supplier payment term of the
// parties.
func (r Parties) SetPaymentTerm(ctx context.Context, ids []bos.ID, term bos.ID) error {
	return bos.Model(r.p.svc, ModelParty).Write(ctx, ids, bos.Record{
		"customer_payment_term": term,
		"supplier_payment_term": term,
	})
}

func (r Parties) values(ctx context.Context, party Party) (bos.Record, error) {
	rec := bos.Record{"name": party.Name}
	if party.TaxID != "" {
		rec["vat_number"] = party.TaxID
	}
	if party.TaxRegime != "" {
		rec["iva_condition"] = party.TaxRegime
	}
	lookups := r.p.Lookups()
	var addresses bos.Children
	for _, a := range party.Addresses {
		addr := bos.Record{}
		for k, v := range map[string]string{"street": a.Street, "zip": a.Zip, "city": a.City} {
			if v != "" {
				addr[k] = v
			}
		}
		if a.Country != "" {
			id, err := lookups.Country(ctx, a.Country)
			if err != nil {
				return nil, err
			}
			addr["country"] = id
		}
		if a.Subdivision != "" {
			id, err := lookups.Subdivision(ctx, a.Subdivision)
			if err != nil {
				return nil, err
			}
			addr["subdivision"] = id
		}
		addresses = append(addresses, addr)
	}
	if len(addresses) > 0 {
		rec["addresses"] = addresses
	}
	var contacts bos.Children
	for _, c := range party.Contacts {
		contacts = append(contacts, bos.Record{"type": c.Type, "value": c.Value})
	}
	if len(contacts) > 0 {
		rec["contact_mechanisms"] = contacts
	}
	return rec, nil
}

// Company describes a company and the party that owns it.
type Company struct {
	Party    Party
	Currency string
	Parent   bos.ID
}

// Companies provisions company.company records keyed by their party name.
type Companies struct {
	p *Provisioner
}

// Companies returns the company repository.
func (p *Provisioner) Companies() Companies {
	return Companies{p: p}
}

// Ensure returns the company owned by a party named c.Party.Name, creating
// the party and the company when missing.
func (r Companies) Ensure(ctx context.Context, c Company) (bos.ID, bool, error) {
	return r.p.Ensure(ctx, ModelCompany, bos.Where("party.name", bos.Eq, c.Party.Name), func(ctx context.Context) (bos.Record, error) {
		party, _, err := r.p.Parties().Ensure(ctx, c.Party)
		if err != nil {
			return nil, err
		}
		currency, err := r.p.Lookups().Currency(ctx, c.Currency)
		if err != nil {
			return nil, err
		}
		rec := bos.Record{"party": party, "currency": currency}
		if c.Parent != 0 {
			rec["parent"] = c.Parent
		}
		return rec, nil
	})
}

// Configure creates the main company through the company configuration
// wizard, which also makes it the current user's company. An existing
// company owned by the party is returned as is.
func (r Companies) Configure(ctx context.Context, c Company) (bos.ID, bool, error) {
	if id, err := r.ByPartyName(ctx, c.Party.Name); err == nil {
		return id, false, nil
	} else if !isNotFound(err) {
		return 0, false, err
	}

	wiz, err := StartCompanyConfig(ctx, r.p.svc)
	if err != nil {
		return 0, false, err
	}
	form, err := wiz.Company(ctx)
	if err != nil {
		return 0, false, err
	}
	party, _, err := r.p.Parties().Ensure(ctx, c.Party)
	if err != nil {
		form.abort(ctx)
		return 0, false, err
	}
	currency, err := r.p.Lookups().Currency(ctx, c.Currency)
	if err != nil {
		form.abort(ctx)
		return 0, false, err
	}
	if err := form.Add(ctx, party, currency); err != nil {
		return 0, false, err
	}
	id, err := r.ByPartyName(ctx, c.Party.Name)
	if err != nil {
		return 0, false, err
	}
	r.p.logger.Info("configured company", "party", c.Party.Name, "id", id)
	return id, true, nil
}

// ByPartyName returns the company owned by the named party.
func (r Companies) ByPartyName(ctx context.Context, name string) (bos.ID, error) {
	return r.p.FindOne(ctx, ModelCompany, bos.Where("party.name", bos.Eq, name))
}

// Employees provisions company.employee records keyed by party name and
// company.
type Employees struct {
	p *Provisioner
}

// Employees returns the employee repository.
func (p *Provisioner) Employees() Employees {
	return Employees{p: p}
}

// Ensure returns the employee of company held by the named party.
func (r Employees) Ensure(ctx context.Context, party Party, company bos.ID) (bos.ID, bool, error) {
	key := bos.Where("party.name", bos.Eq, party.Name).And("company", bos.Eq, company)
	return r.p.Ensure(ctx, ModelEmployee, key, func(ctx context.Context) (bos.Record, error) {
		id, _, err := r.p.Parties().Ensure(ctx, party)
		if err != nil {
			return nil, err
		}
		return bos.Record{"party": id, "company": company}, nil
	})
}

// Of returns the employees of company.
func (r Employees) Of(ctx context.Context, company bos.ID) ([]bos.ID, error) {
	return bos.Model(r.p.svc, ModelEmployee).Find(ctx, bos.Where("company", bos.Eq, company))
}

// Accounts looks up chart of accounts nodes by their fixed codes.
type Accounts struct {
	p *Provisioner
}

// Accounts returns the account repository.
func (p *Provisioner) Accounts() Accounts {
	return Accounts{p: p}
}

// ByCode returns the account of company with the given code. An empty kind
// matches any kind.
func (r Accounts) ByCode(ctx context.Context, company bos.ID, kind, code string) (bos.ID, error) {
	key := bos.Where("code", bos.Eq, code).And("company", bos.Eq, company)
	if kind != "" {
		key = key.And("kind", bos.Eq, kind)
	}
	return r.p.FindOne(ctx, ModelAccount, key)
}

// Exists reports whether company has an account with the given code.
func (r Accounts) Exists(ctx context.Context, company bos.ID, code string) (bool, error) {
	ids, err := bos.Model(r.p.svc, ModelAccount).Find(ctx, bos.Where("code", bos.Eq, code).And("company", bos.Eq, company))
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// Chart names the template a chart of accounts is created from and the
// codes of its default receivable and payable accounts.
type Chart struct {
	Template   string
	Receivable string
	Payable    string
}

// CreateChart instantiates the chart template for company through the
// account.create_chart wizard. It is a no-op returning false when the
// company already has the receivable account.
func (r Accounts) CreateChart(ctx context.Context, company bos.ID, chart Chart) (bool, error) {
	exists, err := r.Exists(ctx, company, chart.Receivable)
	if err != nil || exists {
		return false, err
	}
	template, err := r.p.FindOne(ctx, ModelTemplateTree, bos.Where("parent", bos.Eq, nil).And("name", bos.Eq, chart.Template))
	if err != nil {
		return false, err
	}

	wiz, err := StartChartOfAccounts(ctx, r.p.svc)
	if err != nil {
		return false, err
	}
	form, err := wiz.Account(ctx)
	if err != nil {
		return false, err
	}
	props, err := form.CreateAccount(ctx, template, company)
	if err != nil {
		return false, err
	}
	receivable, err := r.ByCode(ctx, company, "receivable", chart.Receivable)
	if err != nil {
		props.abort(ctx)
		return false, err
	}
	payable, err := r.ByCode(ctx, company, "payable", chart.Payable)
	if err != nil {
		props.abort(ctx)
		return false, err
	}
	if err := props.CreateProperties(ctx, receivable, payable); err != nil {
		return false, err
	}
	r.p.logger.Info("created chart of accounts", "template", chart.Template, "company", company)
	return true, nil
}

// Sequence describes a numbering sequence. Strict sequences never skip
// numbers and back legal documents such as invoices.
type Sequence struct {
	Name    string
	Code    string
	Company bos.ID
	Strict  bool
}

// Sequences provisions ir.sequence and ir.sequence.strict records keyed by
// name, code and company.
type Sequences struct {
	p *Provisioner
}

// Sequences returns the sequence repository.
func (p *Provisioner) Sequences() Sequences {
	return Sequences{p: p}
}

// Ensure returns the sequence, creating it when missing.
func (r Sequences) Ensure(ctx context.Context, s Sequence) (bos.ID, bool, error) {
	model := ModelSequence
	if s.Strict {
		model = ModelStrictSeq
	}
	key := bos.Where("name", bos.Eq, s.Name).And("code", bos.Eq, s.Code).And("company", bos.Eq, s.Company)
	return r.p.Ensure(ctx, model, key, Values(bos.Record{"name": s.Name, "code": s.Code, "company": s.Company}))
}

// Category describes a product category.
type Category struct {
	Name    string
	Parent  bos.ID
	Expense bos.ID
	Revenue bos.ID
}

// Categories provisions product.category records keyed by name and parent.
type Categories struct {
	p *Provisioner
}

// Categories returns the product category repository.
func (p *Provisioner) Categories() Categories {
	return Categories{p: p}
}

// Ensure returns the category, creating it when missing.
func (r Categories) Ensure(ctx context.Context, c Category) (bos.ID, bool, error) {
	var parent any
	if c.Parent != 0 {
		parent = c.Parent
	}
	key := bos.Where("name", bos.Eq, c.Name).And("parent", bos.Eq, parent)
	rec := bos.Record{"name": c.Name}
	if c.Parent != 0 {
		rec["parent"] = c.Parent
	}
	setAccounts(rec, c.Expense, c.Revenue)
	return r.p.Ensure(ctx, ModelCategory, key, Values(rec))
}

// Template describes a product template with a single variant.
type Template struct {
	Name        string
	Category    bos.ID
	Unit        bos.ID
	Type        string
	ListPrice   decimal.Decimal
	CostPrice   decimal.Decimal
	Salable     bool
	Purchasable bool
	Expense     bos.ID
	Revenue     bos.ID
}

// Templates provisions product.template records keyed by name.
type Templates struct {
	p *Provisioner
}

// Templates returns the product template repository.
func (p *Provisioner) Templates() Templates {
	return Templates{p: p}
}

// Ensure returns the template, creating it together with its variant when
// missing.
func (r Templates) Ensure(ctx context.Context, t Template) (bos.ID, bool, error) {
	kind := t.Type
	if kind == "" {
		kind = "goods"
	}
	rec := bos.Record{
		"name":        t.Name,
		"type":        kind,
		"default_uom": t.Unit,
		"list_price":  t.ListPrice,
		"cost_price":  t.CostPrice,
		"products":    bos.Children{{}},
	}
	if t.Category != 0 {
		rec["category"] = t.Category
	}
	if t.Salable {
		rec["salable"] = true
	}
	if t.Purchasable {
		rec["purchasable"] = true
	}
	setAccounts(rec, t.Expense, t.Revenue)
	return r.p.Ensure(ctx, ModelTemplate, bos.Where("name", bos.Eq, t.Name), Values(rec))
}

// Variant returns the product of a single-variant template.
func (r Templates) Variant(ctx context.Context, template bos.ID) (bos.ID, error) {
	return r.p.FindOne(ctx, ModelProduct, bos.Where("template", bos.Eq, template))
}

// Products returns the products whose template has flag set, e.g. "salable".
func (r Templates) Products(ctx context.Context, flag string) ([]bos.ID, error) {
	return bos.Model(r.p.svc, ModelProduct).Find(ctx, bos.Where("template."+flag, bos.Eq, true))
}

func setAccounts(rec bos.Record, expense, revenue bos.ID) {
	if expense != 0 {
		rec["account_expense"] = expense
	}
	if revenue != 0 {
		rec["account_revenue"] = revenue
	}
}

// PaymentTerms provisions account.invoice.payment_term records keyed by
// name.
type PaymentTerms struct {
	p *Provisioner
}

// PaymentTerms returns the payment term repository.
func (p *Provisioner) PaymentTerms() PaymentTerms {
	return PaymentTerms{p: p}
}

// Ensure returns the named term, creating it with a single remainder line
// due after the given number of days.
func (r PaymentTerms) Ensure(ctx context.Context, name string, days int) (bos.ID, bool, error) {
	return r.p.Ensure(ctx, ModelPaymentTerm, bos.Where("name", bos.Eq, name), Values(bos.Record{
		"name": name,
		"lines": bos.Children{{
			"type":           "remainder",
			"relativedeltas": bos.Children{{"days": days}},
		}},
	}))
}

// Journal describes an account journal.
type Journal struct {
	Name     string
	Type     string
	Account  bos.ID
	Sequence bos.ID
}

// Journals provisions account.journal records keyed by name and type.
type Journals struct {
	p *Provisioner
}

// Journals returns the journal repository.
func (p *Provisioner) Journals() Journals {
	return Journals{p: p}
}

// Ensure returns the journal, creating it when missing. The account is
// used for both debit and credit.
func (r Journals) Ensure(ctx context.Context, j Journal) (bos.ID, bool, error) {
	key := bos.Where("name", bos.Eq, j.Name).And("type", bos.Eq, j.Type)
	rec := bos.Record{"name": j.Name, "type": j.Type}
	if j.Account != 0 {
		rec["credit_account"] = j.Account
		rec["debit_account"] = j.Account
	}
	if j.Sequence != 0 {
		rec["sequence"] = j.Sequence
	}
	return r.p.Ensure(ctx, ModelJournal, key, Values(rec))
}

// FiscalYear describes a fiscal year and the sequences it numbers its
// documents with, keyed by fiscal year field name.
type FiscalYear struct {
	Name      string
	Start     bos.Date
	Company   bos.ID
	Sequences map[string]bos.ID
}

// FiscalYears provisions account.fiscalyear records keyed by name and
// company.
type FiscalYears struct {
	p *Provisioner
}

// FiscalYears returns the fiscal year repository.
func (p *Provisioner) FiscalYears() FiscalYears {
	return FiscalYears{p: p}
}

// Ensure returns the fiscal year, creating it and its monthly periods when
// missing.
func (r FiscalYears) Ensure(ctx context.Context, fy FiscalYear) (bos.ID, bool, error) {
	key := bos.Where("name", bos.Eq, fy.Name).And("company", bos.Eq, fy.Company)
	rec := bos.Record{
		"name":       fy.Name,
		"start_date": fy.Start,
		"end_date":   bos.NewDate(fy.Start.Year(), time.December, 31),
		"company":    fy.Company,
	}
	for field, seq := range fy.Sequences {
		rec[field] = seq
	}
	id, created, err := r.p.Ensure(ctx, "account.fiscalyear", key, Values(rec))
	if err != nil || !created {
		return id, created, err
	}
	if _, err := bos.Model(r.p.svc, "account.fiscalyear").Call(ctx, "create_period", id); err != nil {
		return 0, false, fmt.Errorf("creating periods of fiscal year %s: %w", fy.Name, err)
	}
	return id, true, nil
}
