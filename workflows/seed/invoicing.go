package seed

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/replay"
	"github.com/nomis52/demoseed/workflow"
)

const (
	modelInvoice        = "account.invoice"
	modelMoveLine       = "account.move.line"
	modelVoucher        = "account.voucher"
	modelPayMode        = "account.voucher.paymode"
	modelPayment        = "account.payment"
	modelPaymentJournal = "account.payment.journal"
	modelStatement      = "account.statement"
	modelStatementJrnl  = "account.statement.journal"

	wizardPayLine        = "account.move.line.pay"
	wizardPaymentProcess = "account.payment.process"
)

var invoiceWindow = replay.Window{From: replay.Offset{Months: -1}, MinStep: 1, MaxStep: 3}

// InvoiceMaturation dates and posts pending invoices: two thirds of the
// customer invoices interleaved with the supplier ones, a few per day over
// the last month.
type InvoiceMaturation struct {
	Logger     *slog.Logger
	StatusLine *activity.StatusLine
	Runner     *replay.Runner
	Session    *Session

	_ *Stock
}

func (a *InvoiceMaturation) Init() error {
	return nil
}

func (a *InvoiceMaturation) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		h := bos.Model(a.Runner.Service(), modelInvoice)
		pending := func(kind string) ([]bos.ID, error) {
			return h.Find(ctx, bos.Where("type", bos.Eq, kind).And("state", bos.In, []string{"draft", "validated"}))
		}
		out, err := pending("out")
		if err != nil {
			return err
		}
		in, err := pending("in")
		if err != nil {
			return err
		}
		r := a.Runner.Rand()
		invoices := replay.Interleave(replay.TwoThirds(r, out), in)

		dated := 0
		for _, date := range invoiceWindow.Dates(a.Session.Today, r) {
			if dated >= len(invoices) {
				break
			}
			n := min(r.Between(1, 5), len(invoices)-dated)
			if err := h.Write(ctx, invoices[dated:dated+n], bos.Record{"invoice_date": date}); err != nil {
				return err
			}
			dated += n
		}
		a.StatusLine.Setf("posting %d of %d invoices", dated, len(invoices))
		if err := a.Runner.Apply(ctx, modelInvoice, "post", invoices[:dated]...); err != nil {
			return err
		}
		a.Logger.Info("invoices posted", "posted", dated, "pending", len(invoices)-dated)
		return nil
	})
}

// Vouchers collects two thirds of the open receivables with one bank
// receipt each.
type Vouchers struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Session     *Session
	Company     *Company

	Demo config.DemoConfig `config:"demo"`

	_ *InvoiceMaturation
}

func (a *Vouchers) Init() error {
	return nil
}

func (a *Vouchers) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		p := a.Provisioner
		company := a.Company.ID()
		bank, err := p.Accounts().ByCode(ctx, company, "", bankCode)
		if err != nil {
			return err
		}
		seq, _, err := p.Sequences().Ensure(ctx, provision.Sequence{Name: bankJournalName, Code: "account.journal", Company: company})
		if err != nil {
			return err
		}
		journal, _, err := p.Journals().Ensure(ctx, provision.Journal{Name: bankJournalName, Type: "cash", Account: bank, Sequence: seq})
		if err != nil {
			return err
		}
		paymode, _, err := p.Ensure(ctx, modelPayMode, bos.Where("name", bos.Eq, bankPayModeName),
			provision.Values(bos.Record{"name": bankPayModeName, "account": bank}))
		if err != nil {
			return err
		}
		currency, err := p.Lookups().Currency(ctx, a.Demo.Currency)
		if err != nil {
			return err
		}

		h := bos.Model(p.Service(), modelMoveLine)
		open, err := h.Browse(ctx, bos.Where("account.kind", bos.Eq, "receivable").
			And("party", bos.NotEq, nil).
			And("reconciliation", bos.Eq, nil).
			And("state", bos.Eq, "valid").
			And("move.state", bos.Eq, "posted"), "party", "debit", "credit")
		if err != nil {
			return err
		}
		lines := replay.TwoThirds(a.Runner.Rand(), open)
		for i, line := range lines {
			a.StatusLine.Progress("receipts", i, len(lines))
			amount := line.Decimal("debit").Sub(line.Decimal("credit"))
			id, err := a.Runner.Create(ctx, modelVoucher, bos.Record{
				"currency":     currency,
				"date":         a.Session.Today,
				"voucher_type": "receipt",
				"journal":      journal,
				"party":        line.Ref("party"),
				"lines":        bos.Children{{"move_line": line.ID(), "amount": amount}},
				"pay_lines":    bos.Children{{"pay_mode": paymode, "pay_amount": amount}},
			})
			if err != nil {
				return err
			}
			if err := a.Runner.Apply(ctx, modelVoucher, "post", id); err != nil {
				return err
			}
		}
		a.StatusLine.Setf("%d receipts for %d open receivables", len(lines), len(open))
		return nil
	})
}

// Payments pays two thirds of the supplier debts through the pay wizard,
// then approves and processes a share of the resulting payments.
type Payments struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Company     *Company

	_ *Vouchers
}

func (a *Payments) Init() error {
	return nil
}

func (a *Payments) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		p := a.Provisioner
		svc := p.Service()
		company := a.Company.ID()
		usd, err := p.Lookups().Currency(ctx, paymentCurrency)
		if err != nil {
			return err
		}
		journal, _, err := p.Ensure(ctx, modelPaymentJournal,
			bos.Where("name", bos.Eq, paymentJournal).And("company", bos.Eq, company),
			provision.Values(bos.Record{"name": paymentJournal, "currency": usd, "company": company, "process_method": "manual"}))
		if err != nil {
			return err
		}

		payable, err := bos.Model(svc, modelMoveLine).Find(ctx, bos.Where("account.kind", bos.Eq, "payable").
			And("party", bos.NotEq, nil).
			And("reconciliation", bos.Eq, nil).
			And("payment_amount", bos.NotEq, 0))
		if err != nil {
			return err
		}
		r := a.Runner.Rand()
		lines := replay.TwoThirds(r, payable)
		if len(lines) == 0 {
			a.StatusLine.Set("no payable lines")
			return nil
		}

		a.StatusLine.Setf("paying %d lines", len(lines))
		wiz, err := bos.StartWizard(ctx, svc, wizardPayLine, lines...)
		if err != nil {
			return err
		}
		wiz.Form["journal"] = journal
		err = wiz.Execute(ctx, "start")
		closeErr := wiz.Close(ctx)
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}

		drafts, err := bos.Model(svc, modelPayment).Find(ctx, bos.Where("state", bos.Eq, "draft"))
		if err != nil {
			return err
		}
		approved := replay.TwoThirds(r, drafts)
		if err := a.Runner.Apply(ctx, modelPayment, "approve", approved...); err != nil {
			return err
		}
		processed := replay.TwoThirds(r, approved)
		for _, batch := range replay.Batch(r, processed, 1, 5) {
			if err := a.process(ctx, batch); err != nil {
				return err
			}
		}
		a.StatusLine.Setf("%d payments, %d approved, %d processed", len(drafts), len(approved), len(processed))
		return nil
	})
}

func (a *Payments) process(ctx context.Context, batch []bos.ID) error {
	wiz, err := bos.StartWizard(ctx, a.Provisioner.Service(), wizardPaymentProcess, batch...)
	if err != nil {
		return err
	}
	defer wiz.Close(ctx)
	return wiz.Execute(ctx, "process")
}

// Statements reconciles two thirds of the posted invoices on one bank
// statement.
type Statements struct {
	Logger      *slog.Logger
	StatusLine  *activity.StatusLine
	Provisioner *provision.Provisioner
	Runner      *replay.Runner
	Session     *Session
	Company     *Company

	_ *Payments
}

func (a *Statements) Init() error {
	return nil
}

func (a *Statements) Execute(ctx context.Context) error {
	return activity.CaptureError(a.StatusLine, func() error {
		p := a.Provisioner
		company := a.Company.ID()
		seq, _, err := p.Sequences().Ensure(ctx, provision.Sequence{Name: statementSequence, Code: "account.journal", Company: company})
		if err != nil {
			return err
		}
		cash, err := p.Accounts().ByCode(ctx, company, "", cashCode)
		if err != nil {
			return err
		}
		accountJournal, _, err := p.Journals().Ensure(ctx, provision.Journal{Name: bankJournalName, Type: "statement", Account: cash, Sequence: seq})
		if err != nil {
			return err
		}
		journal, _, err := p.Ensure(ctx, modelStatementJrnl, bos.Where("name", bos.Eq, bankJournalName),
			provision.Values(bos.Record{"name": bankJournalName, "journal": accountJournal, "validation": "balance"}))
		if err != nil {
			return err
		}

		posted, err := bos.Model(p.Service(), modelInvoice).Browse(ctx, bos.Where("state", bos.Eq, "posted"),
			"type", "party", "amount_to_pay", "invoice_date")
		if err != nil {
			return err
		}
		r := a.Runner.Rand()
		var lines bos.Children
		total := decimal.Zero
		for i, inv := range replay.TwoThirds(r, posted) {
			amount := inv.Decimal("amount_to_pay")
			if amount.IsZero() {
				continue
			}
			if inv.String("type") == "in" {
				amount = amount.Neg()
			}
			date, ok := inv.Date("invoice_date")
			if !ok {
				date = a.Session.Today
			}
			line := bos.Record{
				"number":      strconv.Itoa(i),
				"date":        date.AddDays(r.Between(1, 20)),
				"amount":      amount,
				"party":       inv.Ref("party"),
				"description": r.Sentence(4),
			}
			if r.Chance(2.0 / 3) {
				line["invoice"] = inv.ID()
			}
			lines = append(lines, line)
			total = total.Add(amount)
		}

		id, err := a.Runner.Create(ctx, modelStatement, bos.Record{
			"name":          "001",
			"journal":       journal,
			"start_balance": decimal.Zero,
			"end_balance":   total,
			"lines":         lines,
		})
		if err != nil {
			return err
		}
		if err := a.Runner.Apply(ctx, modelStatement, "validate_statement", id); err != nil {
			return err
		}
		a.StatusLine.Setf("statement with %d lines, balance %s", len(lines), total.StringFixed(2))
		return nil
	})
}

var (
	_ workflow.Activity = (*InvoiceMaturation)(nil)
	_ workflow.Activity = (*Vouchers)(nil)
	_ workflow.Activity = (*Payments)(nil)
	_ workflow.Activity = (*Statements)(nil)
)
