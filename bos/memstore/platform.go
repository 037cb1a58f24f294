package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomis52/demoseed/bos"
)

// Module states as reported by the platform.
const (
	NotActivated = "not activated"
	ToActivate   = "to activate"
	ToUpgrade    = "to upgrade"
	Activated    = "activated"
)

// Module describes an installable module of the platform double.
type Module struct {
	Name    string
	Depends []string
}

// ChartTemplate is the name of the account chart template NewPlatform ships.
const ChartTemplate = "Plan Contable Argentino para Cooperativas"

// DefaultModules is the module graph of NewPlatform. ir and res are
// activated from the start.
var DefaultModules = []Module{
	{Name: "ir"},
	{Name: "res", Depends: []string{"ir"}},
	{Name: "country", Depends: []string{"ir"}},
	{Name: "currency", Depends: []string{"ir"}},
	{Name: "party", Depends: []string{"country", "currency"}},
	{Name: "party_ar", Depends: []string{"party"}},
	{Name: "company", Depends: []string{"party", "currency"}},
	{Name: "product", Depends: []string{"ir"}},
	{Name: "account", Depends: []string{"company"}},
	{Name: "account_product", Depends: []string{"account", "product"}},
	{Name: "account_invoice", Depends: []string{"account_product"}},
	{Name: "account_invoice_ar", Depends: []string{"account_invoice", "party_ar"}},
	{Name: "account_voucher_ar", Depends: []string{"account_invoice_ar"}},
	{Name: "account_payment", Depends: []string{"account"}},
	{Name: "account_statement", Depends: []string{"account_invoice"}},
	{Name: "stock", Depends: []string{"company", "product"}},
	{Name: "sale", Depends: []string{"account_invoice", "stock"}},
	{Name: "sale_pos_ar", Depends: []string{"sale", "account_invoice_ar"}},
	{Name: "purchase", Depends: []string{"account_invoice", "stock"}},
	{Name: "production", Depends: []string{"stock"}},
	{Name: "production_routing", Depends: []string{"production"}},
	{Name: "production_work", Depends: []string{"production_routing"}},
	{Name: "project", Depends: []string{"company"}},
	{Name: "timesheet", Depends: []string{"company"}},
}

type chartAccount struct {
	code, name, kind string
}

var chart = []chartAccount{
	{"1111", "Caja", "other"},
	{"11141", "Banco", "other"},
	{"1135", "Deudores por ventas", "receivable"},
	{"2111", "Proveedores", "payable"},
	{"515", "Ingresos por Ventas", "revenue"},
	{"5249", "Gastos Varios", "expense"},
}

// NewPlatform returns a store that behaves like a freshly created platform
// database: reference data (countries, currencies, units, languages,
// groups, an account chart template) is present, every module of
// DefaultModules but ir and res is inactive and the document workflows,
// buttons and wizards used by demoseed are registered.
func NewPlatform() *Store {
	s := New()
	s.SetPreferences(bos.Record{"language": "en"})

	for _, m := range DefaultModules {
		state := NotActivated
		if m.Name == "ir" || m.Name == "res" {
			state = Activated
		}
		s.Insert("ir.module", bos.Record{"name": m.Name, "depends": m.Depends, "state": state})
	}

	installRelations(s)
	installReferenceData(s)
	installModuleSystem(s)
	installWizards(s)
	installWorkflows(s)
	return s
}

// SetModuleState forces the state of the named modules.
func (s *Store) SetModuleState(state string, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.table("ir.module").rows {
		if contains(names, rec.String("name")) {
			rec["state"] = state
		}
	}
}

// ModuleState returns the state of a module, or "" if it does not exist.
func (s *Store) ModuleState(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.table("ir.module").rows {
		if rec.String("name") == name {
			return rec.String("state")
		}
	}
	return ""
}

func installRelations(s *Store) {
	for _, r := range [][3]string{
		{"country.subdivision", "country", "country.country"},
		{"party.address", "party", "party.party"},
		{"company.company", "party", "party.party"},
		{"company.company", "parent", "company.company"},
		{"company.employee", "party", "party.party"},
		{"company.employee", "company", "company.company"},
		{"account.account", "company", "company.company"},
		{"account.account.template", "parent", "account.account.template"},
		{"account.move.line", "account", "account.account"},
		{"account.move.line", "move", "account.move"},
		{"account.move.line", "party", "party.party"},
		{"account.invoice", "party", "party.party"},
		{"product.product", "template", "product.template"},
		{"product.template", "category", "product.category"},
		{"product.category", "parent", "product.category"},
		{"stock.move", "purchase", "purchase.purchase"},
		{"stock.move", "shipment", "stock.shipment.in"},
		{"stock.move", "product", "product.product"},
		{"production.work.center", "parent", "production.work.center"},
		{"project.work", "parent", "project.work"},
		{"res.user", "language", "ir.lang"},
	} {
		s.Relate(r[0], r[1], r[2])
	}

	for _, r := range [][4]string{
		{"party.party", "addresses", "party.address", "party"},
		{"party.party", "contact_mechanisms", "party.contact_mechanism", "party"},
		{"product.template", "products", "product.product", "template"},
		{"sale.sale", "lines", "sale.line", "sale"},
		{"purchase.purchase", "lines", "purchase.line", "purchase"},
		{"stock.shipment.in", "incoming_moves", "stock.move", "shipment"},
		{"account.invoice.payment_term", "lines", "account.invoice.payment_term.line", "payment_term"},
		{"account.invoice.payment_term.line", "relativedeltas", "account.invoice.payment_term.line.delta", "line"},
		{"production.bom", "inputs", "production.bom.input", "bom"},
		{"production.bom", "outputs", "production.bom.output", "bom"},
		{"production", "inputs", "stock.move", "production_input"},
		{"production", "outputs", "stock.move", "production_output"},
		{"production", "works", "production.work", "production"},
		{"production.routing", "steps", "production.routing.step", "routing"},
		{"production.routing", "boms", "production.bom", ""},
		{"production.work.center", "children", "production.work.center", "parent"},
		{"project.work", "children", "project.work", "parent"},
		{"account.voucher", "lines", "account.voucher.line", "voucher"},
		{"account.voucher", "pay_lines", "account.voucher.line.paymode", "voucher"},
		{"account.statement", "lines", "account.statement.line", "statement"},
		{"res.user", "groups", "res.group", ""},
	} {
		s.OneToMany(r[0], r[1], r[2], r[3])
	}
}

func installReferenceData(s *Store) {
	ar := s.Insert("country.country", bos.Record{"code": "AR", "name": "Argentina"})
	for code, name := range map[string]string{
		"AR-B": "Buenos Aires",
		"AR-C": "Ciudad Autonoma de Buenos Aires",
		"AR-H": "Chaco",
		"AR-S": "Santa Fe",
	} {
		s.Insert("country.subdivision", bos.Record{"code": code, "name": name, "country": ar})
	}
	s.Insert("currency.currency", bos.Record{"code": "ARS", "name": "Peso Argentino"})
	s.Insert("currency.currency", bos.Record{"code": "USD", "name": "U.S. Dollar"})
	s.Insert("product.uom", bos.Record{"name": "Unit", "symbol": "u"})
	s.Insert("ir.lang", bos.Record{"code": "en", "name": "English", "translatable": true})
	s.Insert("ir.lang", bos.Record{"code": "es", "name": "Spanish", "translatable": false})
	s.Insert("ir.action", bos.Record{"name": "Menu", "usage": "menu"})
	for _, g := range []string{"Administration", "Employee", "Sales", "Stock", "Account Administration"} {
		s.Insert("res.group", bos.Record{"name": g})
	}
	s.Insert("res.user", bos.Record{"login": "admin", "name": "Administrator"})
	s.Insert("account.account.template", bos.Record{"name": ChartTemplate})
	s.Insert("sale.configuration", bos.Record{})
}

func installModuleSystem(s *Store) {
	s.Method("ir.module", "activate", func(ctx context.Context, s *Store, ids []bos.ID) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		modules := s.table("ir.module").rows
		byName := make(map[string]bos.Record, len(modules))
		for _, rec := range modules {
			byName[rec.String("name")] = rec
		}
		var mark func(rec bos.Record)
		mark = func(rec bos.Record) {
			if rec.String("state") != NotActivated {
				return
			}
			rec["state"] = ToActivate
			deps, _ := rec["depends"].([]string)
			for _, d := range deps {
				if dep, ok := byName[d]; ok {
					mark(dep)
				}
			}
		}
		for _, id := range ids {
			rec, ok := modules[id]
			if !ok {
				return nil, &bos.RemoteError{Method: "ir.module.activate", Message: fmt.Sprintf("record %d does not exist", id)}
			}
			mark(rec)
		}
		return nil, nil
	})

	s.Method("ir.module", "upgrade", func(ctx context.Context, s *Store, ids []bos.ID) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, id := range ids {
			rec, ok := s.table("ir.module").rows[id]
			if !ok {
				return nil, &bos.RemoteError{Method: "ir.module.upgrade", Message: fmt.Sprintf("record %d does not exist", id)}
			}
			if rec.String("state") == Activated {
				rec["state"] = ToUpgrade
			}
		}
		return nil, nil
	})

	s.Wizard("ir.module.activate_upgrade", func(ctx context.Context, s *Store, state string, _ bos.Record, _ []bos.ID) (string, bos.Record, error) {
		if state != "upgrade" {
			return "", nil, unknownState("ir.module.activate_upgrade", state)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		modules := s.table("ir.module").rows
		for _, id := range sortedIDs(modules) {
			rec := modules[id]
			switch rec.String("state") {
			case ToActivate:
				rec["state"] = Activated
				s.insertLocked("ir.module.config_wizard.item", bos.Record{"action": rec.String("name"), "state": "open"})
			case ToUpgrade:
				rec["state"] = Activated
			}
		}
		return "done", nil, nil
	})
}

func installWizards(s *Store) {
	s.Wizard("company.company.config", func(ctx context.Context, s *Store, state string, form bos.Record, _ []bos.ID) (string, bos.Record, error) {
		switch state {
		case "company":
			return "company", bos.Record{}, nil
		case "add":
			if form.Ref("party") == 0 || form.Ref("currency") == 0 {
				return "", nil, &bos.RemoteError{Method: "company.company.config.add", Message: "party and currency are required"}
			}
			ids, err := s.Create(ctx, "company.company", bos.Record{"party": form.Ref("party"), "currency": form.Ref("currency")})
			if err != nil {
				return "", nil, err
			}
			s.mu.Lock()
			s.prefs["company"] = ids[0]
			s.prefs["companies"] = []bos.ID{ids[0]}
			s.mu.Unlock()
			return bos.EndState, nil, nil
		}
		return "", nil, unknownState("company.company.config", state)
	})

	s.Wizard("account.create_chart", func(ctx context.Context, s *Store, state string, form bos.Record, _ []bos.ID) (string, bos.Record, error) {
		switch state {
		case "account":
			prefs, _ := s.Preferences(ctx)
			return "account", bos.Record{"company": prefs.Ref("company")}, nil
		case "create_account":
			company := form.Ref("company")
			if form.Ref("account_template") == 0 || company == 0 {
				return "", nil, &bos.RemoteError{Method: "account.create_chart.create_account", Message: "template and company are required"}
			}
			for _, a := range chart {
				if _, err := s.Create(ctx, "account.account", bos.Record{
					"code": a.code, "name": a.name, "kind": a.kind, "company": company,
				}); err != nil {
					return "", nil, err
				}
			}
			return "properties", bos.Record{}, nil
		case "create_properties":
			if form.Ref("account_receivable") == 0 || form.Ref("account_payable") == 0 {
				return "", nil, &bos.RemoteError{Method: "account.create_chart.create_properties", Message: "receivable and payable accounts are required"}
			}
			_, err := s.Create(ctx, "account.configuration", bos.Record{
				"company":                    form.Ref("company"),
				"default_account_receivable": form.Ref("account_receivable"),
				"default_account_payable":    form.Ref("account_payable"),
			})
			if err != nil {
				return "", nil, err
			}
			return bos.EndState, nil, nil
		}
		return "", nil, unknownState("account.create_chart", state)
	})

	s.Wizard("account.move.line.pay", func(ctx context.Context, s *Store, state string, form bos.Record, targets []bos.ID) (string, bos.Record, error) {
		if state != "start" {
			return "", nil, unknownState("account.move.line.pay", state)
		}
		for _, id := range targets {
			line, ok := s.Get("account.move.line", id)
			if !ok {
				return "", nil, &bos.RemoteError{Method: "account.move.line.pay.start", Message: fmt.Sprintf("line %d does not exist", id)}
			}
			if _, err := s.Create(ctx, "account.payment", bos.Record{
				"journal": form.Ref("journal"),
				"line":    id,
				"party":   line.Ref("party"),
				"kind":    "payable",
				"amount":  line.Decimal("payment_amount"),
			}); err != nil {
				return "", nil, err
			}
		}
		return bos.EndState, nil, nil
	})

	s.Wizard("account.payment.process", func(ctx context.Context, s *Store, state string, _ bos.Record, targets []bos.ID) (string, bos.Record, error) {
		if state != "process" {
			return "", nil, unknownState("account.payment.process", state)
		}
		_, err := s.Call(ctx, "account.payment", "process", targets)
		return bos.EndState, nil, err
	})
}

func installWorkflows(s *Store) {
	s.Workflow("sale.sale", "draft",
		Transition{Name: "quote", From: []string{"draft"}, To: "quotation"},
		Transition{Name: "confirm", From: []string{"quotation"}, To: "confirmed"},
		Transition{Name: "process", From: []string{"confirmed"}, To: "processing", Apply: processSale},
		Transition{Name: "cancel", From: []string{"draft", "quotation"}, To: "cancelled"},
	)
	s.Workflow("purchase.purchase", "draft",
		Transition{Name: "quote", From: []string{"draft"}, To: "quotation"},
		Transition{Name: "confirm", From: []string{"quotation"}, To: "confirmed"},
		Transition{Name: "process", From: []string{"confirmed"}, To: "processing", Apply: processPurchase},
		Transition{Name: "cancel", From: []string{"draft", "quotation"}, To: "cancelled"},
	)
	s.Workflow("account.invoice", "draft",
		Transition{Name: "validate_invoice", From: []string{"draft"}, To: "validated"},
		Transition{Name: "post", From: []string{"draft", "validated"}, To: "posted", Apply: postInvoice},
	)
	s.Workflow("account.voucher", "draft",
		Transition{Name: "post", From: []string{"draft"}, To: "posted", Apply: postVoucher},
	)
	s.Workflow("account.payment", "draft",
		Transition{Name: "approve", From: []string{"draft"}, To: "approved"},
		Transition{Name: "process", From: []string{"approved"}, To: "processing"},
	)
	s.Workflow("account.statement", "draft",
		Transition{Name: "validate_statement", From: []string{"draft"}, To: "validated"},
	)
	s.Workflow("stock.shipment.in", "draft",
		Transition{Name: "receive", From: []string{"draft"}, To: "received"},
		Transition{Name: "done", From: []string{"received"}, To: "done", Apply: finishIncoming},
	)
	s.Workflow("stock.shipment.out", "waiting",
		Transition{Name: "pack", From: []string{"assigned"}, To: "packed"},
		Transition{Name: "done", From: []string{"packed"}, To: "done"},
	)
	s.Method("stock.shipment.out", "assign_try", func(ctx context.Context, s *Store, ids []bos.ID) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, id := range ids {
			rec, ok := s.table("stock.shipment.out").rows[id]
			if !ok || rec.String("state") != "waiting" {
				return false, nil
			}
		}
		for _, id := range ids {
			s.table("stock.shipment.out").rows[id]["state"] = "assigned"
		}
		return true, nil
	})
	s.Workflow("production", "draft",
		Transition{Name: "wait", From: []string{"draft"}, To: "waiting"},
		Transition{Name: "assign_force", From: []string{"waiting"}, To: "assigned"},
		Transition{Name: "run", From: []string{"assigned"}, To: "running", Apply: startProduction},
		Transition{Name: "done", From: []string{"running"}, To: "done"},
	)
	s.Computed("production", "cost", func(s *Store, rec bos.Record) any {
		cost := decimal.Zero
		for _, id := range rec.Refs("inputs") {
			move := s.Lookup("stock.move", id)
			cost = cost.Add(move.Decimal("quantity").Mul(move.Decimal("unit_price")))
		}
		return cost
	})
	s.Workflow("production.work.cycle", "draft",
		Transition{Name: "run", From: []string{"draft"}, To: "running"},
		Transition{Name: "do", From: []string{"running"}, To: "done"},
	)
	s.Method("account.fiscalyear", "create_period", func(ctx context.Context, s *Store, ids []bos.ID) (any, error) {
		for _, id := range ids {
			fy, ok := s.Get("account.fiscalyear", id)
			if !ok {
				return nil, &bos.RemoteError{Method: "account.fiscalyear.create_period", Message: fmt.Sprintf("record %d does not exist", id)}
			}
			start, _ := fy.Date("start_date")
			for m := 0; m < 12; m++ {
				from := start.AddMonths(m)
				if _, err := s.Create(ctx, "account.period", bos.Record{
					"fiscalyear": id,
					"name":       from.Format("2006-01"),
					"start_date": from,
					"end_date":   from.AddMonths(1).AddDays(-1),
				}); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
}

func processSale(ctx context.Context, s *Store, id bos.ID) error {
	sale, _ := s.Get("sale.sale", id)
	total := decimal.Zero
	for _, lid := range sale.Refs("lines") {
		line, _ := s.Get("sale.line", lid)
		product, _ := s.Get("product.product", line.Ref("product"))
		template, _ := s.Get("product.template", product.Ref("template"))
		total = total.Add(line.Decimal("quantity").Mul(template.Decimal("list_price")))
	}
	if _, err := s.Create(ctx, "account.invoice", bos.Record{
		"type": "out", "party": sale.Ref("party"), "total_amount": total, "amount_to_pay": total,
	}); err != nil {
		return err
	}
	_, err := s.Create(ctx, "stock.shipment.out", bos.Record{"customer": sale.Ref("party"), "origin": id})
	return err
}

func processPurchase(ctx context.Context, s *Store, id bos.ID) error {
	purchase, _ := s.Get("purchase.purchase", id)
	total := decimal.Zero
	for _, lid := range purchase.Refs("lines") {
		line, _ := s.Get("purchase.line", lid)
		product, _ := s.Get("product.product", line.Ref("product"))
		template, _ := s.Get("product.template", product.Ref("template"))
		total = total.Add(line.Decimal("quantity").Mul(template.Decimal("cost_price")))
		if _, err := s.Create(ctx, "stock.move", bos.Record{
			"product": line.Ref("product"), "quantity": line["quantity"], "purchase": id, "state": "draft",
		}); err != nil {
			return err
		}
	}
	_, err := s.Create(ctx, "account.invoice", bos.Record{
		"type": "in", "party": purchase.Ref("party"), "total_amount": total, "amount_to_pay": total,
	})
	return err
}

func postInvoice(ctx context.Context, s *Store, id bos.ID) error {
	inv, _ := s.Get("account.invoice", id)
	if _, ok := inv.Date("invoice_date"); !ok {
		if err := s.Write(ctx, "account.invoice", []bos.ID{id}, bos.Record{"invoice_date": bos.DateOf(time.Now())}); err != nil {
			return err
		}
	}
	kind := "receivable"
	if inv.String("type") == "in" {
		kind = "payable"
	}
	accounts, err := s.Search(ctx, "account.account", bos.Where("kind", bos.Eq, kind))
	if err != nil || len(accounts) == 0 {
		return err
	}
	moves, err := s.Create(ctx, "account.move", bos.Record{"origin": id, "state": "posted"})
	if err != nil {
		return err
	}
	amount := inv.Decimal("total_amount")
	line := bos.Record{
		"move": moves[0], "account": accounts[0], "party": inv.Ref("party"), "state": "valid",
		"debit": amount, "credit": decimal.Zero,
	}
	if kind == "payable" {
		line["debit"], line["credit"] = decimal.Zero, amount
		line["payment_amount"] = amount
	}
	_, err = s.Create(ctx, "account.move.line", line)
	return err
}

func postVoucher(ctx context.Context, s *Store, id bos.ID) error {
	voucher, _ := s.Get("account.voucher", id)
	for _, lid := range voucher.Refs("lines") {
		line, _ := s.Get("account.voucher.line", lid)
		if ml := line.Ref("move_line"); ml != 0 {
			if err := s.Write(ctx, "account.move.line", []bos.ID{ml}, bos.Record{"reconciliation": id}); err != nil {
				return err
			}
		}
	}
	return nil
}

func finishIncoming(ctx context.Context, s *Store, id bos.ID) error {
	shipment, _ := s.Get("stock.shipment.in", id)
	return s.Write(ctx, "stock.move", shipment.Refs("incoming_moves"), bos.Record{"state": "done"})
}

// startProduction creates one work per routing step.
func startProduction(ctx context.Context, s *Store, id bos.ID) error {
	production, _ := s.Get("production", id)
	routing := production.Ref("routing")
	if routing == 0 {
		return nil
	}
	steps, err := s.Search(ctx, "production.routing.step", bos.Where("routing", bos.Eq, routing))
	if err != nil {
		return err
	}
	var works bos.Children
	for _, step := range steps {
		works = append(works, bos.Record{"step": step, "work_center": production.Ref("work_center")})
	}
	if len(works) == 0 {
		return nil
	}
	return s.Write(ctx, "production", []bos.ID{id}, bos.Record{"works": works})
}

func unknownState(wizard, state string) error {
	return &bos.RemoteError{Method: wizard + "." + state, Message: "unknown wizard state"}
}

// ActivatedModules returns the names of activated modules, sorted.
func (s *Store) ActivatedModules() []string {
	var names []string
	for _, rec := range s.All("ir.module") {
		if rec.String("state") == Activated {
			names = append(names, rec.String("name"))
		}
	}
	sort.Strings(names)
	return names
}
