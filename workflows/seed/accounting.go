package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/workflow"
)

// Chart creates the chart of accounts of the main company and the previous,
// current and next fiscal years with their numbering sequences.
type Chart struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Session     *Session
	Activate    *Activate
	Company     *Company

	Demo config.DemoConfig `config:"demo"`
}

func (a *Chart) Init() error {
	return nil
}

func (a *Chart) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		company := a.Company.ID()
		if company == 0 {
			return fmt.Errorf("chart of accounts needs a company")
		}
		a.StatusLine.Setf("creating chart %q", a.Demo.ChartTemplate)
		created, err := a.Provisioner.Accounts().CreateChart(ctx, company, provision.Chart{
			Template:   a.Demo.ChartTemplate,
			Receivable: receivableCode,
			Payable:    payableCode,
		})
		if err != nil {
			return err
		}
		if !created {
			a.Logger.Info("chart of accounts already present", "company", company)
		}

		for i, offset := range []int{-1, 0, 1} {
			start := a.Session.Today.StartOfYear(offset)
			a.StatusLine.Progress("fiscal years", i, 3)
			if err := a.fiscalYear(ctx, company, start); err != nil {
				return err
			}
		}
		a.StatusLine.Progress("fiscal years", 3, 3)
		return nil
	})
}

func (a *Chart) fiscalYear(ctx context.Context, company bos.ID, start bos.Date) error {
	year := strconv.Itoa(start.Year())
	seqs := a.Provisioner.Sequences()
	act := a.Activate.Activation()

	fields := make(map[string]bos.ID)
	id, _, err := seqs.Ensure(ctx, provision.Sequence{Name: year, Code: "account.move", Company: company})
	if err != nil {
		return err
	}
	fields["post_move_sequence"] = id

	if act.Active("account_invoice") {
		for _, s := range invoiceSequences {
			id, _, err := seqs.Ensure(ctx, provision.Sequence{
				Name:    s.name + " " + year,
				Code:    "account.invoice",
				Company: company,
				Strict:  true,
			})
			if err != nil {
				return err
			}
			fields[s.field] = id
		}
	}
	if act.Active("account_voucher_ar") {
		for _, s := range voucherSequences {
			id, _, err := seqs.Ensure(ctx, provision.Sequence{Name: s.name + " " + year, Code: s.code, Company: company})
			if err != nil {
				return err
			}
			fields[s.field] = id
		}
	}

	_, _, err = a.Provisioner.FiscalYears().Ensure(ctx, provision.FiscalYear{
		Name:      year,
		Start:     start,
		Company:   company,
		Sequences: fields,
	})
	return err
}

// PaymentTerms creates the 30 day payment term and assigns it to every
// party as customer and supplier term.
type PaymentTerms struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner

	_ *Parties
}

func (a *PaymentTerms) Init() error {
	return nil
}

func (a *PaymentTerms) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		term, _, err := a.Provisioner.PaymentTerms().Ensure(ctx, paymentTermName, paymentTermDays)
		if err != nil {
			return err
		}
		parties, err := a.Provisioner.Parties().All(ctx)
		if err != nil {
			return err
		}
		if err := a.Provisioner.Parties().SetPaymentTerm(ctx, parties, term); err != nil {
			return err
		}
		a.StatusLine.Setf("%q assigned to %d parties", paymentTermName, len(parties))
		return nil
	})
}

// PointOfSale creates the manual point of sale and the invoice sequences it
// numbers each fiscal invoice type with.
type PointOfSale struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Company     *Company

	id bos.ID
}

func (a *PointOfSale) Init() error {
	return nil
}

func (a *PointOfSale) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		p := a.Provisioner
		pos, _, err := p.Ensure(ctx, modelPOS, posKey(), provision.Values(bos.Record{
			"pos_type": posType,
			"number":   posNumber,
		}))
		if err != nil {
			return err
		}
		a.id = pos

		for i, s := range posSequences {
			a.StatusLine.Progress("point of sale sequences", i, len(posSequences))
			seq, _, err := p.Sequences().Ensure(ctx, provision.Sequence{
				Name:    s.name + " " + posType,
				Code:    "account.invoice",
				Company: a.Company.ID(),
			})
			if err != nil {
				return err
			}
			key := bos.Where("pos", bos.Eq, pos).And("invoice_type", bos.Eq, s.invoiceType)
			if _, _, err := p.Ensure(ctx, modelPOSSequence, key, provision.Values(bos.Record{
				"pos":              pos,
				"invoice_type":     s.invoiceType,
				"invoice_sequence": seq,
			})); err != nil {
				return err
			}
		}
		a.StatusLine.Setf("point of sale %d ready", posNumber)
		return nil
	})
}

// ID returns the point of sale, looking it up when the step did not run.
func (a *PointOfSale) ID(ctx context.Context) (bos.ID, error) {
	if a.id != 0 {
		return a.id, nil
	}
	return a.Provisioner.FindOne(ctx, modelPOS, posKey())
}

func posKey() bos.Domain {
	return bos.Where("pos_type", bos.Eq, posType).And("number", bos.Eq, posNumber)
}

// SalePOS makes the manual point of sale the default of new sales.
type SalePOS struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	PointOfSale *PointOfSale
}

func (a *SalePOS) Init() error {
	return nil
}

func (a *SalePOS) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		pos, err := a.PointOfSale.ID(ctx)
		if err != nil {
			return err
		}
		cfg, err := a.Provisioner.FindOne(ctx, modelSaleConfig, nil)
		if err != nil {
			return err
		}
		if err := bos.Model(a.Provisioner.Service(), modelSaleConfig).Write(ctx, []bos.ID{cfg}, bos.Record{"pos": pos}); err != nil {
			return err
		}
		a.StatusLine.Set("sales default to the manual point of sale")
		return nil
	})
}

const (
	modelPOS         = "account.pos"
	modelPOSSequence = "account.pos.sequence"
	modelSaleConfig  = "sale.configuration"
)

var (
	_ workflow.Activity = (*Chart)(nil)
	_ workflow.Activity = (*PaymentTerms)(nil)
	_ workflow.Activity = (*PointOfSale)(nil)
	_ workflow.Activity = (*SalePOS)(nil)
)
