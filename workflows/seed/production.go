package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/replay"
	"github.com/nomis52/demoseed/workflow"
)

const (
	modelBOM            = "production.bom"
	modelProductBOM     = "product.product-production.bom"
	modelRouting        = "production.routing"
	modelOperation      = "production.routing.operation"
	modelWorkCenter     = "production.work.center"
	modelWorkCenterCat  = "production.work.center.category"
)

var productionWindow = replay.Window{From: replay.Offset{Months: -1}, To: replay.Offset{Days: 20}, MinStep: 1, MaxStep: 3}

// Production sets up the computer bill of materials, its routing and work
// centers when those modules are active, then replays a month of
// manufacturing orders and the next twenty days of planned ones.
type Production struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Session     *Session
	Activate    *Activate
	Company     *Company

	_ *Timesheets

	unit        bos.ID
	computer    bos.ID
	bom         bos.ID
	routing     bos.ID
	workCenters []bos.ID
	parts       []part
}

type part struct {
	product bos.ID
	cost    decimal.Decimal
}

func (a *Production) Init() error {
	return nil
}

func (a *Production) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		act := a.Activate.Activation()
		a.StatusLine.Set("creating bill of materials")
		if err := a.setupBOM(ctx, act.Active("account_product")); err != nil {
			return err
		}
		if act.Active("production_routing") {
			a.StatusLine.Set("creating routing")
			if err := a.setupRouting(ctx); err != nil {
				return err
			}
		}
		works := act.Active("production_work")
		if works {
			a.StatusLine.Set("creating work centers")
			if err := a.setupWorkCenters(ctx); err != nil {
				return err
			}
		}
		return a.replay(ctx, works)
	})
}

func (a *Production) product(ctx context.Context, c component, expense, revenue bos.ID) (bos.ID, error) {
	templates := a.Provisioner.Templates()
	tmpl, _, err := templates.Ensure(ctx, provision.Template{
		Name:      c.name,
		Unit:      a.unit,
		ListPrice: decimal.NewFromInt(c.list),
		CostPrice: decimal.NewFromInt(c.cost),
		Expense:   expense,
		Revenue:   revenue,
	})
	if err != nil {
		return 0, err
	}
	return templates.Variant(ctx, tmpl)
}

func (a *Production) setupBOM(ctx context.Context, withAccounts bool) error {
	p := a.Provisioner
	expense, revenue, err := productAccounts(ctx, p, withAccounts, a.Company.ID())
	if err != nil {
		return err
	}
	if a.unit, err = p.Lookups().Unit(ctx, unitName); err != nil {
		return err
	}

	a.parts = a.parts[:0]
	var inputs bos.Children
	for _, c := range computerParts {
		id, err := a.product(ctx, c, expense, revenue)
		if err != nil {
			return err
		}
		a.parts = append(a.parts, part{product: id, cost: decimal.NewFromInt(c.cost)})
		inputs = append(inputs, bos.Record{"product": id, "quantity": 1, "uom": a.unit})
	}
	if a.computer, err = a.product(ctx, computer, expense, revenue); err != nil {
		return err
	}

	a.bom, _, err = p.Ensure(ctx, modelBOM, bos.Where("name", bos.Eq, bomName), provision.Values(bos.Record{
		"name":    bomName,
		"inputs":  inputs,
		"outputs": bos.Children{{"product": a.computer, "quantity": 1, "uom": a.unit}},
	}))
	if err != nil {
		return err
	}
	_, _, err = p.Ensure(ctx, modelProductBOM, a.productBOMKey(), provision.Values(bos.Record{
		"product": a.computer,
		"bom":     a.bom,
	}))
	return err
}

func (a *Production) productBOMKey() bos.Domain {
	return bos.Where("product", bos.Eq, a.computer).And("bom", bos.Eq, a.bom)
}

func (a *Production) setupRouting(ctx context.Context) error {
	p := a.Provisioner
	var steps bos.Children
	for i, op := range routingOperations {
		id, _, err := p.Ensure(ctx, modelOperation, bos.Where("name", bos.Eq, op.name),
			provision.Values(bos.Record{"name": op.name}))
		if err != nil {
			return err
		}
		steps = append(steps, bos.Record{"operation": id, "sequence": i + 1})
	}
	var err error
	a.routing, _, err = p.Ensure(ctx, modelRouting, bos.Where("name", bos.Eq, routingName), provision.Values(bos.Record{
		"name":  routingName,
		"steps": steps,
		"boms":  bos.Add{a.bom},
	}))
	if err != nil {
		return err
	}
	link, err := p.FindOne(ctx, modelProductBOM, a.productBOMKey())
	if err != nil {
		return err
	}
	return bos.Model(p.Service(), modelProductBOM).Write(ctx, []bos.ID{link}, bos.Record{"routing": a.routing})
}

func (a *Production) setupWorkCenters(ctx context.Context) error {
	p := a.Provisioner
	svc := p.Service()
	categories := make(map[string]bos.ID)
	for _, op := range routingOperations {
		if _, ok := categories[op.category]; ok {
			continue
		}
		id, _, err := p.Ensure(ctx, modelWorkCenterCat, bos.Where("name", bos.Eq, op.category),
			provision.Values(bos.Record{"name": op.category}))
		if err != nil {
			return err
		}
		categories[op.category] = id
	}
	for _, op := range routingOperations {
		ids, err := bos.Model(svc, modelOperation).Find(ctx, bos.Where("name", bos.Eq, op.name))
		if err != nil {
			return err
		}
		if err := bos.Model(svc, modelOperation).Write(ctx, ids, bos.Record{"work_center_category": categories[op.category]}); err != nil {
			return err
		}
	}

	for i := 1; i <= 3; i++ {
		var children bos.Children
		for _, l := range workCenterLines {
			children = append(children, bos.Record{
				"name":        fmt.Sprintf("%s %d", l.prefix, i),
				"category":    categories[l.category],
				"cost_method": l.costMethod,
				"cost_price":  decimal.NewFromInt(l.costPrice),
			})
		}
		name := fmt.Sprintf("Line %d", i)
		if _, _, err := p.Ensure(ctx, modelWorkCenter, bos.Where("name", bos.Eq, name).And("parent", bos.Eq, nil),
			provision.Values(bos.Record{"name": name, "children": children})); err != nil {
			return err
		}
	}

	var err error
	a.workCenters, err = bos.Model(svc, modelWorkCenter).Find(ctx, bos.Where("parent", bos.Eq, nil))
	return err
}

func (a *Production) replay(ctx context.Context, works bool) error {
	r := a.Runner.Rand()
	today := a.Session.Today
	dates := productionWindow.Dates(today, r)
	count := 0
	for i, date := range dates {
		a.StatusLine.Progress("production days", i, len(dates))
		for n := r.Between(0, 3); n > 0; n-- {
			qty := r.Between(1, 40)
			rec := bos.Record{
				"effective_date": date,
				"product":        a.computer,
				"quantity":       qty,
				"uom":            a.unit,
				"bom":            a.bom,
				"inputs":         a.inputs(qty),
				"outputs":        bos.Children{{"product": a.computer, "quantity": qty, "uom": a.unit}},
			}
			if company := a.Company.ID(); company != 0 {
				rec["company"] = company
			}
			if a.routing != 0 {
				rec["routing"] = a.routing
			}
			if works {
				if center, ok := replay.Pick(r, a.workCenters); ok {
					rec["work_center"] = center
				}
			}
			id, err := a.Runner.Create(ctx, replay.ProductionChain.Model, rec)
			if err != nil {
				return err
			}
			hooks := replay.Hooks{"done": func(ctx context.Context, id bos.ID) error {
				return a.finish(ctx, id, works)
			}}
			if _, err := a.Runner.Advance(ctx, replay.ProductionChain, id, date.Before(today), hooks); err != nil {
				return err
			}
			count++
		}
	}
	a.StatusLine.Setf("%d productions over %d days", count, len(dates))
	return nil
}

func (a *Production) inputs(qty int) bos.Children {
	var moves bos.Children
	for _, p := range a.parts {
		moves = append(moves, bos.Record{"product": p.product, "quantity": qty, "uom": a.unit, "unit_price": p.cost})
	}
	return moves
}

// finish books work cycles and prices the output before a production is
// done.
func (a *Production) finish(ctx context.Context, id bos.ID, works bool) error {
	svc := a.Runner.Service()
	r := a.Runner.Rand()
	production, err := bos.Model(svc, replay.ProductionChain.Model).Get(ctx, id, "cost", "quantity", "outputs", "works")
	if err != nil {
		return err
	}
	if works {
		for _, work := range production.Refs("works") {
			for n := r.Between(1, 2); n > 0; n-- {
				cycle, err := a.Runner.Create(ctx, replay.WorkCycleChain.Model, bos.Record{
					"work":     work,
					"duration": time.Duration(r.Between(60, 3600)) * time.Second,
				})
				if err != nil {
					return err
				}
				if _, err := a.Runner.Advance(ctx, replay.WorkCycleChain, cycle, true, nil); err != nil {
					return err
				}
			}
		}
	}
	qty := int(production.Decimal("quantity").IntPart())
	price := replay.UnitPrice(production.Decimal("cost"), qty)
	return bos.Model(svc, modelMove).Write(ctx, production.Refs("outputs"), bos.Record{"unit_price": price})
}

var _ workflow.Activity = (*Production)(nil)
