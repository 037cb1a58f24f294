package seed

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/bos/memstore"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/logging"
	"github.com/nomis52/demoseed/workflow"
)

func testConfig(modules ...string) *config.Config {
	cfg := &config.Config{
		Target:  config.TargetConfig{URL: "http://platform.test", Database: "demo"},
		Modules: modules,
		Demo:    config.DemoConfig{Seed: 42, Today: "2024-06-14"},
	}
	cfg.SetDefaults()
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, store *memstore.Store, cfg *config.Config) workflow.Workflow {
	t.Helper()
	w, err := NewWorkflow(cfg, store, discardLogger())
	require.NoError(t, err)
	require.NoError(t, w.Execute(context.Background()))
	return w
}

func result(w workflow.Workflow, a workflow.Activity) *workflow.Result {
	return w.GetAllResults()[workflow.GetActivityID(a)]
}

func TestSeed_Parties(t *testing.T) {
	store := memstore.NewPlatform()

	w := run(t, store, testConfig("party"))
	assert.True(t, result(w, &Parties{}).IsSuccess())
	assert.Equal(t, workflow.Disabled, result(w, &Company{}).State)
	assert.Equal(t, workflow.Disabled, result(w, &Sales{}).State)
	assert.Equal(t, 4, store.Count("party.party"))

	w = run(t, store, testConfig("party"))
	assert.Equal(t, workflow.Disabled, result(w, &Parties{}).State, "party is already active")
	assert.Equal(t, 4, store.Count("party.party"), "no party is created twice")
}

func TestSeed_CompanyRerun(t *testing.T) {
	store := memstore.NewPlatform()

	w := run(t, store, testConfig("company"))
	assert.True(t, result(w, &Company{}).IsSuccess())
	assert.True(t, result(w, &CompanyPost{}).IsSuccess())
	assert.Equal(t, 3, store.Count("company.company"))
	before := len(store.Calls())

	w = run(t, store, testConfig("company"))
	assert.True(t, result(w, &Company{}).IsSuccess(), "the company is looked up")
	assert.Equal(t, workflow.Disabled, result(w, &CompanyPost{}).State)
	assert.Equal(t, 3, store.Count("company.company"))
	for _, call := range store.Calls()[before:] {
		assert.False(t, strings.HasPrefix(call, "company.company.config"), "unexpected call %s", call)
	}
}

func TestSeed_UnknownCompany(t *testing.T) {
	store := memstore.NewPlatform()
	run(t, store, testConfig("party"))

	cfg := testConfig("company")
	store.SetModuleState(memstore.Activated, "company")
	w, err := NewWorkflow(cfg, store, discardLogger())
	require.NoError(t, err)

	err = w.Execute(context.Background())
	require.Error(t, err, "company is active but was never configured")
	assert.Equal(t, workflow.Completed, result(w, &Company{}).State)
	assert.Error(t, result(w, &Company{}).Error)
	assert.Equal(t, workflow.Skipped, result(w, &Languages{}).State)
}

func TestSeed_Full(t *testing.T) {
	store := memstore.NewPlatform()
	cfg := testConfig(append(append([]string(nil), config.DefaultModules...), "account_payment")...)

	w := run(t, store, cfg)
	for id, r := range w.GetAllResults() {
		assert.True(t, r.IsSatisfied(), "%s: %s %v", id.Type, r.State, r.Error)
	}
	assert.True(t, result(w, &Production{}).IsSuccess())

	assert.Equal(t, 3, store.Count("company.company"))
	assert.Equal(t, 3, store.Count("account.fiscalyear"))
	assert.Equal(t, 36, store.Count("account.period"))
	assert.Positive(t, store.Count("sale.sale"))
	assert.Positive(t, store.Count("purchase.purchase"))
	assert.Positive(t, store.Count("account.invoice"))
	assert.Positive(t, store.Count("production"))
	assert.Positive(t, store.Count("timesheet.line"))
	assert.Equal(t, 1, store.Count("account.statement"))

	var logins []string
	for _, u := range store.All("res.user") {
		logins = append(logins, u.String("login"))
	}
	assert.ElementsMatch(t, []string{"admin", "demo", "demo_es"}, logins)
	for _, l := range store.All("ir.lang") {
		assert.Equal(t, true, l["translatable"], l.String("code"))
	}

	for _, sale := range store.All("sale.sale") {
		assert.Contains(t, []string{"draft", "quotation", "confirmed", "processing", "cancelled"}, sale.String("state"))
	}
	for _, p := range store.All("account.payment") {
		assert.Contains(t, []string{"draft", "approved", "processing"}, p.String("state"))
	}
}

func TestSeed_Reproducible(t *testing.T) {
	counts := func() map[string]int {
		store := memstore.NewPlatform()
		run(t, store, testConfig("sale", "purchase"))
		return map[string]int{
			"sale.sale":         store.Count("sale.sale"),
			"purchase.purchase": store.Count("purchase.purchase"),
			"account.invoice":   store.Count("account.invoice"),
			"stock.move":        store.Count("stock.move"),
		}
	}
	assert.Equal(t, counts(), counts(), "the same seed replays the same documents")
}

func TestSeed_LogHook(t *testing.T) {
	collector := logging.NewLogCollector()
	w, err := NewWorkflow(testConfig("party"), memstore.NewPlatform(), discardLogger(),
		WithLogHook(logging.NewCapturingLoggerHook(collector)))
	require.NoError(t, err)
	require.NoError(t, w.Execute(context.Background()))

	id := workflow.GetActivityID(&Parties{})
	var messages []string
	for _, e := range collector.Entries(id.String()) {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "parties ready")
}
