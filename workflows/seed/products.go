package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/replay"
	"github.com/nomis52/demoseed/workflow"
)

// Products creates the paper categories and one template per paper format
// and pack size. Bigger packs compound the margin.
type Products struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Activate    *Activate
	Company     *Company
}

func (a *Products) Init() error {
	return nil
}

func (a *Products) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		act := a.Activate.Activation()
		expense, revenue, err := productAccounts(ctx, a.Provisioner, act.Active("account_product"), a.Company.ID())
		if err != nil {
			return err
		}

		cats := a.Provisioner.Categories()
		papers, _, err := cats.Ensure(ctx, provision.Category{Name: paperCategory, Expense: expense, Revenue: revenue})
		if err != nil {
			return err
		}
		sizes := make([]bos.ID, len(paperFormats))
		for i, format := range paperFormats {
			sizes[i], _, err = cats.Ensure(ctx, provision.Category{Name: format, Parent: papers, Expense: expense, Revenue: revenue})
			if err != nil {
				return err
			}
		}

		unit, err := a.Provisioner.Lookups().Unit(ctx, unitName)
		if err != nil {
			return err
		}

		tiers := replay.PriceTiers(paperListUnit, paperCostUnit, paperQuantities, paperMargin)
		total, created := len(tiers)*len(paperFormats), 0
		for _, tier := range tiers {
			for i, format := range paperFormats {
				a.StatusLine.Progress("paper templates", created, total)
				if _, _, err := a.Provisioner.Templates().Ensure(ctx, provision.Template{
					Name:        fmt.Sprintf("%s Papel %d", format, tier.Quantity),
					Category:    sizes[i],
					Unit:        unit,
					ListPrice:   tier.ListPrice,
					CostPrice:   tier.CostPrice,
					Salable:     act.Active("sale"),
					Purchasable: act.Active("purchase"),
					Expense:     expense,
					Revenue:     revenue,
				}); err != nil {
					return err
				}
				created++
			}
		}
		a.StatusLine.Progress("paper templates", created, total)
		return nil
	})
}

// productAccounts returns the default expense and revenue accounts of
// company, or zeros when products carry no accounts.
func productAccounts(ctx context.Context, p *provision.Provisioner, enabled bool, company bos.ID) (expense, revenue bos.ID, err error) {
	if !enabled {
		return 0, 0, nil
	}
	accounts := p.Accounts()
	if expense, err = accounts.ByCode(ctx, company, "expense", expenseCode); err != nil {
		return 0, 0, err
	}
	if revenue, err = accounts.ByCode(ctx, company, "revenue", revenueCode); err != nil {
		return 0, 0, err
	}
	return expense, revenue, nil
}

var _ workflow.Activity = (*Products)(nil)
