package seed

import (
	"context"
	"log/slog"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/replay"
	"github.com/nomis52/demoseed/workflow"
)

var (
	saleWindow     = replay.Window{From: replay.Offset{Months: -2}, To: replay.Offset{Days: 10}, MinStep: 1, MaxStep: 3}
	purchaseWindow = replay.Window{From: replay.Offset{Days: -60}, To: replay.Offset{Days: 20}, MinStep: 5, MaxStep: 10}
)

// Sales replays two months of customer orders and the next ten days of
// pending ones.
type Sales struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Session     *Session
	Parties     *Parties

	_ *Products
}

func (a *Sales) Init() error {
	return nil
}

func (a *Sales) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		customers, err := a.Parties.Customers(ctx)
		if err != nil {
			return err
		}
		products, err := a.Provisioner.Templates().Products(ctx, "salable")
		if err != nil {
			return err
		}
		if len(customers) == 0 || len(products) == 0 {
			a.Logger.Warn("nothing to sell", "customers", len(customers), "products", len(products))
			a.StatusLine.Set("skipped: no customers or salable products")
			return nil
		}

		r := a.Runner.Rand()
		today := a.Session.Today
		dates := saleWindow.Dates(today, r)
		count := 0
		for i, date := range dates {
			a.StatusLine.Progress("sale days", i, len(dates))
			for n := r.Between(1, 5); n > 0; n-- {
				customer, _ := replay.Pick(r, customers)
				var lines bos.Children
				for _, product := range replay.Sample(r, products, 5) {
					lines = append(lines, bos.Record{"product": product, "quantity": r.Between(1, 50)})
				}
				id, err := a.Runner.Create(ctx, replay.SaleChain.Model, bos.Record{
					"party":     customer,
					"sale_date": date,
					"lines":     lines,
				})
				if err != nil {
					return err
				}
				if _, err := a.Runner.Advance(ctx, replay.SaleChain, id, !date.After(today), nil); err != nil {
					return err
				}
				count++
			}
		}
		a.StatusLine.Setf("%d sales over %d days", count, len(dates))
		return nil
	})
}

// Purchases replays supplier orders from sixty days back to twenty days
// ahead, one every five to ten days.
type Purchases struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Session     *Session
	Parties     *Parties

	_ *Products
}

func (a *Purchases) Init() error {
	return nil
}

func (a *Purchases) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		suppliers, err := a.Parties.Suppliers(ctx)
		if err != nil {
			return err
		}
		products, err := a.Provisioner.Templates().Products(ctx, "purchasable")
		if err != nil {
			return err
		}
		if len(suppliers) == 0 || len(products) == 0 {
			a.Logger.Warn("nothing to purchase", "suppliers", len(suppliers), "products", len(products))
			a.StatusLine.Set("skipped: no suppliers or purchasable products")
			return nil
		}

		r := a.Runner.Rand()
		today := a.Session.Today
		dates := purchaseWindow.Dates(today, r)
		for i, date := range dates {
			a.StatusLine.Progress("purchases", i, len(dates))
			supplier, _ := replay.Pick(r, suppliers)
			var lines bos.Children
			for _, product := range replay.Sample(r, products, r.Between(1, 15)) {
				lines = append(lines, bos.Record{"product": product, "quantity": r.Between(20, 100)})
			}
			id, err := a.Runner.Create(ctx, replay.PurchaseChain.Model, bos.Record{
				"party":         supplier,
				"purchase_date": date,
				"lines":         lines,
			})
			if err != nil {
				return err
			}
			if _, err := a.Runner.Advance(ctx, replay.PurchaseChain, id, !date.After(today), nil); err != nil {
				return err
			}
		}
		a.StatusLine.Progress("purchases", len(dates), len(dates))
		return nil
	})
}

// Stock receives two thirds of the goods each supplier has pending in
// randomly sized shipments, then ships every customer order that can be
// assigned.
type Stock struct {
	Logger     *slog.Logger
	StatusLine *activity.StatusLine
	Runner     *replay.Runner
	Parties    *Parties

	_ *Purchases
}

func (a *Stock) Init() error {
	return nil
}

func (a *Stock) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		suppliers, err := a.Parties.Suppliers(ctx)
		if err != nil {
			return err
		}
		received := 0
		for _, supplier := range suppliers {
			n, err := a.receive(ctx, supplier)
			if err != nil {
				return err
			}
			received += n
		}

		a.StatusLine.Set("shipping assigned orders")
		shipped, err := a.ship(ctx)
		if err != nil {
			return err
		}
		a.StatusLine.Setf("%d shipments received, %d shipped", received, shipped)
		return nil
	})
}

func (a *Stock) receive(ctx context.Context, supplier bos.ID) (int, error) {
	svc := a.Runner.Service()
	r := a.Runner.Rand()
	pending, err := bos.Model(svc, modelMove).Find(ctx, bos.Where("purchase.party", bos.Eq, supplier).
		And("shipment", bos.Eq, nil).
		And("state", bos.Eq, "draft"))
	if err != nil {
		return 0, err
	}
	moves := replay.TwoThirds(r, pending)
	shipments := 0
	for len(moves) > 0 {
		n := r.Between(1, len(moves))
		batch := moves[len(moves)-n:]
		moves = moves[:len(moves)-n]
		id, err := a.Runner.Create(ctx, replay.IncomingShipmentChain.Model, bos.Record{
			"supplier":       supplier,
			"incoming_moves": bos.Add(batch),
		})
		if err != nil {
			return shipments, err
		}
		if _, err := a.Runner.Advance(ctx, replay.IncomingShipmentChain, id, true, nil); err != nil {
			return shipments, err
		}
		shipments++
	}
	return shipments, nil
}

func (a *Stock) ship(ctx context.Context) (int, error) {
	h := bos.Model(a.Runner.Service(), replay.OutgoingShipmentChain.Model)
	waiting, err := h.Find(ctx, bos.Where("state", bos.Eq, "waiting"))
	if err != nil {
		return 0, err
	}
	shipped := 0
	for _, id := range waiting {
		res, err := h.Call(ctx, "assign_try", id)
		if err != nil {
			return shipped, err
		}
		if assigned, _ := res.(bool); !assigned {
			continue
		}
		if _, err := a.Runner.Advance(ctx, replay.OutgoingShipmentChain, id, true, nil); err != nil {
			return shipped, err
		}
		shipped++
	}
	return shipped, nil
}

const modelMove = "stock.move"

var (
	_ workflow.Activity = (*Sales)(nil)
	_ workflow.Activity = (*Purchases)(nil)
	_ workflow.Activity = (*Stock)(nil)
)
