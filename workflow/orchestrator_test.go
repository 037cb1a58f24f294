package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/logging"
)

func resultOf(o *Orchestrator, activity Activity) *Result {
	return o.GetAllResults()[GetActivityID(activity)]
}

func TestOrchestrator_Empty(t *testing.T) {
	o := NewOrchestrator()
	require.NoError(t, o.Execute(context.Background()))
	assert.Empty(t, o.GetAllResults())
	assert.Empty(t, o.Order())
}

func TestOrchestrator_RejectsDuplicateType(t *testing.T) {
	o := NewOrchestrator()
	require.NoError(t, o.AddActivity(&ActivateModules{}))

	err := o.AddActivity(&ActivateModules{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestOrchestrator_Results(t *testing.T) {
	o := NewOrchestrator()
	modules := &ActivateModules{}

	assert.Empty(t, o.GetAllResults())
	require.NoError(t, o.AddActivity(modules))

	before := resultOf(o, modules)
	require.NotNil(t, before, "results exist as soon as the activity is added")
	assert.Equal(t, NotStarted, before.State)
	assert.Nil(t, before.Error)
	assert.Same(t, before, o.GetResultByActivity(modules))

	require.NoError(t, o.Execute(context.Background()))

	after := resultOf(o, modules)
	assert.True(t, modules.Executed)
	assert.Equal(t, Completed, after.State)
	assert.True(t, after.IsSuccess())
	assert.Nil(t, o.GetResult(ActivityID{Module: "elsewhere", Type: "ActivateModules"}))
}

func TestOrchestrator_InitFailures(t *testing.T) {
	tests := []struct {
		name    string
		cfg     any
		journal *journal
		wantErr string
	}{
		{
			name:    "company without a database",
			cfg:     fixtureConfig{Demo: demoSettings{Seed: 7}},
			journal: &journal{},
			wantErr: "initialization failed",
		},
		{
			name:    "journal not provided",
			cfg:     fixtureConfig{Target: targetSettings{Database: "demo"}},
			wantErr: "has nil dependency",
		},
		{
			name:    "unknown config path",
			cfg:     struct{ Other string }{},
			journal: &journal{},
			wantErr: "config injection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(WithConfig(tt.cfg))
			if tt.journal != nil {
				require.NoError(t, o.Inject(tt.journal))
			}
			company := &Company{}
			require.NoError(t, o.AddActivity(company))

			err := o.Execute(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, company.Executed)
			assert.Equal(t, NotStarted, resultOf(o, company).State)
		})
	}
}

func TestOrchestrator_CircularDependency(t *testing.T) {
	o := NewOrchestrator()
	require.NoError(t, o.AddActivity(&Invoices{}, &Payments{}))

	err := o.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestOrchestrator_InjectsConfigAndDependencies(t *testing.T) {
	cfg := fixtureConfig{
		Target: targetSettings{Database: "demo"},
		Demo:   demoSettings{Seed: 42, Curr: "EUR"},
	}
	j := &journal{}
	o := NewOrchestrator(WithConfig(&cfg))
	require.NoError(t, o.Inject(j))

	parties := &Parties{}
	company := &Company{}
	// Parties needs Company, so registration order is overridden.
	require.NoError(t, o.AddActivity(parties, company))
	require.NoError(t, o.Execute(context.Background()))

	assert.Equal(t, "demo", company.Database)
	assert.Equal(t, uint64(42), company.Seed)
	assert.Equal(t, "EUR", parties.Currency, "resolved through the yaml tag")
	assert.Same(t, company, parties.Company)
	assert.Equal(t, []string{"company for demo", "parties in EUR"}, j.entries())
}

func TestOrchestrator_CapturesActivityLogs(t *testing.T) {
	collector := logging.NewLogCollector()
	o := NewOrchestrator(WithLogHook(logging.NewCapturingLoggerHook(collector)))
	require.NoError(t, o.Inject(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	fiscal := &FiscalYear{}
	require.NoError(t, o.AddActivity(fiscal))
	require.NoError(t, o.Execute(context.Background()))

	var messages []string
	for _, e := range collector.Entries(GetActivityID(fiscal).String()) {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{"checking fiscal year", "opening fiscal year", "periods created"}, messages)
}

func TestOrchestrator_RegistrationOrder(t *testing.T) {
	var trace []string
	o := NewOrchestrator()
	require.NoError(t, o.Inject(&trace))

	// Stock depends on Prices, which is added after it.
	require.NoError(t, o.AddActivity(&Products{}, &Stock{}, &Prices{}))
	require.NoError(t, o.Execute(context.Background()))

	assert.Equal(t, []string{"products", "prices", "stock"}, trace)
	assert.Equal(t, "Products", o.Order()[0].Type)
	assert.Equal(t, "Stock", o.Order()[1].Type, "Order reports registration order")
}

func TestOrchestrator_Gates(t *testing.T) {
	t.Run("closed gate disables", func(t *testing.T) {
		var trace []string
		o := NewOrchestrator()
		require.NoError(t, o.Inject(&trace))

		prices := &Prices{}
		stock := &Stock{}
		require.NoError(t, o.AddActivity(&Products{}))
		require.NoError(t, o.AddGated(prices, func() bool { return false }))
		require.NoError(t, o.AddActivity(stock))
		require.NoError(t, o.Execute(context.Background()))

		assert.Equal(t, []string{"products", "stock"}, trace, "dependents of a disabled step still run")
		assert.Equal(t, Disabled, resultOf(o, prices).State)
		assert.True(t, resultOf(o, prices).IsSatisfied())
		assert.False(t, resultOf(o, prices).IsSuccess())
		assert.Equal(t, Completed, resultOf(o, stock).State)
	})

	t.Run("gate sees earlier steps", func(t *testing.T) {
		var trace []string
		o := NewOrchestrator()
		require.NoError(t, o.Inject(&trace))

		require.NoError(t, o.AddActivity(&Products{}))
		require.NoError(t, o.AddGated(&Prices{}, func() bool {
			return len(trace) == 1 && trace[0] == "products"
		}))
		require.NoError(t, o.Execute(context.Background()))
		assert.Equal(t, []string{"products", "prices"}, trace)
	})

	t.Run("nil gate always runs", func(t *testing.T) {
		var trace []string
		o := NewOrchestrator()
		require.NoError(t, o.Inject(&trace))
		require.NoError(t, o.AddGated(&Products{}, nil))
		require.NoError(t, o.Execute(context.Background()))
		assert.Equal(t, []string{"products"}, trace)
	})
}

func TestOrchestrator_StopsAtFirstFailure(t *testing.T) {
	o := NewOrchestrator()
	vouchers := &Vouchers{}
	post := &PostVouchers{}
	reconcile := &Reconcile{}
	require.NoError(t, o.AddActivity(vouchers, post, reconcile))

	err := o.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnbalanced)

	assert.True(t, vouchers.Executed)
	assert.False(t, post.Executed)
	assert.False(t, reconcile.Executed, "unrelated steps after a failure do not run either")

	assert.Equal(t, Completed, resultOf(o, vouchers).State)
	assert.ErrorIs(t, resultOf(o, vouchers).Error, errUnbalanced)
	assert.Equal(t, Skipped, resultOf(o, post).State)
	assert.Equal(t, Skipped, resultOf(o, reconcile).State)
	assert.Contains(t, resultOf(o, reconcile).Error.Error(), "Vouchers failed")
}

func TestOrchestrator_Cancelled(t *testing.T) {
	o := NewOrchestrator()
	modules := &ActivateModules{}
	require.NoError(t, o.AddActivity(modules))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, modules.Executed)
	assert.Equal(t, Skipped, resultOf(o, modules).State)
}

func TestOrchestrator_Provide(t *testing.T) {
	o := NewOrchestrator()
	shared := &journal{}
	Provide(o, Shared(shared))
	Provide(o, func(id ActivityID) *stepLabel {
		return &stepLabel{name: id.ShortString()}
	})

	users := &DemoUsers{}
	require.NoError(t, o.AddActivity(users))
	require.NoError(t, o.Execute(context.Background()))

	assert.Same(t, shared, users.Journal)
	assert.Equal(t, "workflow.DemoUsers", users.Label.name)
	assert.Equal(t, []string{"workflow.DemoUsers"}, shared.entries())
}

type ActivateModules struct {
	Executed bool
}

func (a *ActivateModules) Init() error { return nil }

func (a *ActivateModules) Execute(context.Context) error {
	a.Executed = true
	return nil
}

var errUnbalanced = errors.New("voucher 3: debit and credit differ")

type Vouchers struct {
	Executed bool
}

func (a *Vouchers) Init() error { return nil }

func (a *Vouchers) Execute(context.Context) error {
	a.Executed = true
	return errUnbalanced
}

type PostVouchers struct {
	_        *Vouchers
	Executed bool
}

func (a *PostVouchers) Init() error { return nil }

func (a *PostVouchers) Execute(context.Context) error {
	a.Executed = true
	return nil
}

type Reconcile struct {
	Executed bool
}

func (a *Reconcile) Init() error { return nil }

func (a *Reconcile) Execute(context.Context) error {
	a.Executed = true
	return nil
}

type Invoices struct {
	Payments *Payments
}

func (a *Invoices) Init() error                   { return nil }
func (a *Invoices) Execute(context.Context) error { return nil }

type Payments struct {
	Invoices *Invoices
}

func (a *Payments) Init() error                   { return nil }
func (a *Payments) Execute(context.Context) error { return nil }

type Company struct {
	Database string `config:"target.database"`
	Seed     uint64 `config:"demo.seed"`
	Journal  *journal
	Executed bool
}

func (a *Company) Init() error {
	if a.Database == "" {
		return errors.New("no database configured")
	}
	return nil
}

func (a *Company) Execute(context.Context) error {
	a.Journal.record("company for " + a.Database)
	a.Executed = true
	return nil
}

type Parties struct {
	Company  *Company
	Currency string `config:"demo.currency"`
	Journal  *journal
}

func (a *Parties) Init() error { return nil }

func (a *Parties) Execute(context.Context) error {
	if !a.Company.Executed {
		return errors.New("company not created")
	}
	a.Journal.record("parties in " + a.Currency)
	return nil
}

type FiscalYear struct {
	Logger *slog.Logger
}

func (a *FiscalYear) Init() error {
	a.Logger.Info("checking fiscal year")
	return nil
}

func (a *FiscalYear) Execute(context.Context) error {
	a.Logger.Info("opening fiscal year", "year", 2024)
	a.Logger.Debug("periods created", "count", 12)
	return nil
}

type Products struct {
	Trace *[]string
}

func (a *Products) Init() error { return nil }

func (a *Products) Execute(context.Context) error {
	*a.Trace = append(*a.Trace, "products")
	return nil
}

type Prices struct {
	Trace *[]string
}

func (a *Prices) Init() error { return nil }

func (a *Prices) Execute(context.Context) error {
	*a.Trace = append(*a.Trace, "prices")
	return nil
}

type Stock struct {
	_     *Prices
	Trace *[]string
}

func (a *Stock) Init() error { return nil }

func (a *Stock) Execute(context.Context) error {
	*a.Trace = append(*a.Trace, "stock")
	return nil
}

type stepLabel struct {
	name string
}

type DemoUsers struct {
	Journal *journal
	Label   *stepLabel
}

func (a *DemoUsers) Init() error { return nil }

func (a *DemoUsers) Execute(context.Context) error {
	a.Journal.record(a.Label.name)
	return nil
}

// journal is a dependency shared between fixtures.
type journal struct {
	mu  sync.Mutex
	log []string
}

func (j *journal) record(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log = append(j.log, s)
}

func (j *journal) entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.log...)
}

type targetSettings struct {
	Database string
}

type demoSettings struct {
	Seed     uint64
	Curr     string `yaml:"currency"`
}

type fixtureConfig struct {
	Target targetSettings
	Demo   demoSettings
}
