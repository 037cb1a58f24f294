package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/bos/memstore"
	"github.com/nomis52/demoseed/metrics"
)

var museo = Party{
	Name:      "Museo Nacional de Bellas Artes",
	TaxID:     "30714248169",
	TaxRegime: "responsable_inscripto",
	Addresses: []Address{{
		Street:      "Av. Libertador 1555",
		Zip:         "1503",
		City:        "Ciudad Autonoma de Buenos Aires",
		Country:     "AR",
		Subdivision: "AR-C",
	}},
	Contacts: []Contact{
		{Type: "phone", Value: "(011) 963-6590"},
		{Type: "website", Value: "https://www.bellasartes.gob.ar/"},
	},
}

func TestEnsure_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)

	builds := 0
	build := func(context.Context) (bos.Record, error) {
		builds++
		return bos.Record{"name": "Papeles", "sequence": 1}, nil
	}
	key := bos.Where("name", bos.Eq, "Papeles")

	first, created, err := p.Ensure(ctx, ModelCategory, key, build)
	require.NoError(t, err)
	assert.True(t, created)

	// A changed attribute on the stored record must survive the second call.
	require.NoError(t, store.Write(ctx, ModelCategory, []bos.ID{first}, bos.Record{"sequence": 7}))

	second, created, err := p.Ensure(ctx, ModelCategory, key, build)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, builds, "builder runs only on a miss")

	rec, _ := store.Get(ModelCategory, first)
	assert.Equal(t, 7, rec["sequence"])
	assert.Equal(t, 1, store.Count(ModelCategory))
}

func TestEnsure_Ambiguous(t *testing.T) {
	store := memstore.New()
	store.Insert(ModelParty, bos.Record{"name": "Saber"})
	store.Insert(ModelParty, bos.Record{"name": "Saber"})
	p := New(store)

	_, _, err := p.Ensure(context.Background(), ModelParty, bos.Where("name", bos.Eq, "Saber"), Values(bos.Record{"name": "Saber"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, bos.ErrAmbiguous))
	assert.True(t, errors.Is(err, bos.ErrConsistency))
	assert.Equal(t, 2, store.Count(ModelParty))
}

func TestEnsure_BuildFailure(t *testing.T) {
	store := memstore.New()
	p := New(store)
	boom := errors.New("boom")

	_, _, err := p.Ensure(context.Background(), ModelParty, bos.Where("name", bos.Eq, "Saber"), func(context.Context) (bos.Record, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Count(ModelParty))
}

func TestFindOne(t *testing.T) {
	store := memstore.New()
	store.Insert(ModelCurrency, bos.Record{"code": "ARS"})
	store.Insert(ModelCurrency, bos.Record{"code": "USD"})
	p := New(store)

	tests := []struct {
		name    string
		domain  bos.Domain
		wantErr error
	}{
		{"single match", bos.Where("code", bos.Eq, "ARS"), nil},
		{"no match", bos.Where("code", bos.Eq, "EUR"), bos.ErrNotFound},
		{"several matches", bos.Where("code", bos.In, []string{"ARS", "USD"}), bos.ErrAmbiguous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := p.FindOne(context.Background(), ModelCurrency, tt.domain)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var lookup *bos.LookupError
				assert.ErrorAs(t, err, &lookup)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, id)
		})
	}
}

func TestParties_Ensure(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)

	id, created, err := p.Parties().Ensure(ctx, museo)
	require.NoError(t, err)
	assert.True(t, created)

	party, ok := store.Get(ModelParty, id)
	require.True(t, ok)
	assert.Equal(t, "30714248169", party.String("vat_number"))
	assert.Equal(t, "responsable_inscripto", party.String("iva_condition"))
	require.Len(t, party.Refs("addresses"), 1)
	assert.Len(t, party.Refs("contact_mechanisms"), 2)

	address, _ := store.Get("party.address", party.Refs("addresses")[0])
	caba, err := p.Lookups().Subdivision(ctx, "AR-C")
	require.NoError(t, err)
	assert.Equal(t, caba, address.Ref("subdivision"))
	assert.Equal(t, "Av. Libertador 1555", address.String("street"))

	again, created, err := p.Parties().Ensure(ctx, museo)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, store.Count("party.address"))
}

func TestParties_UnknownSubdivision(t *testing.T) {
	store := memstore.NewPlatform()
	p := New(store)
	party := museo
	party.Addresses = []Address{{City: "Montevideo", Subdivision: "UY-MO"}}

	_, _, err := p.Parties().Ensure(context.Background(), party)
	assert.ErrorIs(t, err, bos.ErrNotFound)
	assert.Zero(t, store.Count(ModelParty))
}

func TestCompanies_ConfigureAndEnsure(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)
	union := Company{Party: Party{Name: "Union Papelera Platense", TaxID: "30709170046"}, Currency: "ARS"}

	id, created, err := p.Companies().Configure(ctx, union)
	require.NoError(t, err)
	assert.True(t, created)
	prefs, err := store.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, prefs.Ref("company"), "the wizard makes it the user's company")

	again, created, err := p.Companies().Configure(ctx, union)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)
	assert.Equal(t, []string{"company.company.config.company", "company.company.config.add"}, store.Calls())

	sub, created, err := p.Companies().Ensure(ctx, Company{
		Party:    Party{Name: "Papelera Silplast", Addresses: []Address{{City: "La Plata", Country: "AR", Subdivision: "AR-B"}}},
		Currency: "ARS",
		Parent:   id,
	})
	require.NoError(t, err)
	assert.True(t, created)
	rec, _ := store.Get(ModelCompany, sub)
	assert.Equal(t, id, rec.Ref("parent"))
	assert.Equal(t, 2, store.Count(ModelCompany))
}

func TestEmployees_KeyedByPartyAndCompany(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)
	first, _, err := p.Companies().Ensure(ctx, Company{Party: Party{Name: "Papelera Silplast"}, Currency: "ARS"})
	require.NoError(t, err)
	second, _, err := p.Companies().Ensure(ctx, Company{Party: Party{Name: "Papelera Silplast Resistencia"}, Currency: "ARS", Parent: first})
	require.NoError(t, err)

	owen := Party{Name: "Roberto Owen", TaxID: "20060304956", TaxRegime: "monotributo"}
	a, created, err := p.Employees().Ensure(ctx, owen, first)
	require.NoError(t, err)
	assert.True(t, created)
	b, created, err := p.Employees().Ensure(ctx, owen, second)
	require.NoError(t, err)
	assert.True(t, created, "the same person may work for another company")
	assert.NotEqual(t, a, b)
	_, created, err = p.Employees().Ensure(ctx, owen, first)
	require.NoError(t, err)
	assert.False(t, created)

	employees, err := p.Employees().Of(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []bos.ID{a}, employees)
	parties, err := bos.Model(store, ModelParty).Find(ctx, bos.Where("name", bos.Eq, "Roberto Owen"))
	require.NoError(t, err)
	assert.Len(t, parties, 1)
}

func TestAccounts_CreateChart(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)
	company, _, err := p.Companies().Configure(ctx, Company{Party: Party{Name: "Union Papelera Platense"}, Currency: "ARS"})
	require.NoError(t, err)
	chart := Chart{Template: memstore.ChartTemplate, Receivable: "1135", Payable: "2111"}

	created, err := p.Accounts().CreateChart(ctx, company, chart)
	require.NoError(t, err)
	assert.True(t, created)

	configs := store.All("account.configuration")
	require.Len(t, configs, 1)
	receivable, err := p.Accounts().ByCode(ctx, company, "receivable", "1135")
	require.NoError(t, err)
	assert.Equal(t, receivable, configs[0].Ref("default_account_receivable"))

	_, err = p.Accounts().ByCode(ctx, company, "payable", "1135")
	assert.ErrorIs(t, err, bos.ErrNotFound)

	created, err = p.Accounts().CreateChart(ctx, company, chart)
	require.NoError(t, err)
	assert.False(t, created, "an existing chart is left alone")
	assert.Len(t, store.All("account.configuration"), 1)
}

func TestAccounts_CreateChartUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)

	_, err := p.Accounts().CreateChart(ctx, 1, Chart{Template: "Missing", Receivable: "1135", Payable: "2111"})
	assert.ErrorIs(t, err, bos.ErrNotFound)
	assert.Empty(t, store.Calls(), "no wizard is opened")
}

func TestTemplates_Ensure(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)
	unit, err := p.Lookups().Unit(ctx, "Unit")
	require.NoError(t, err)
	papers, _, err := p.Categories().Ensure(ctx, Category{Name: "Papeles"})
	require.NoError(t, err)
	a4, _, err := p.Categories().Ensure(ctx, Category{Name: "A4", Parent: papers})
	require.NoError(t, err)

	id, created, err := p.Templates().Ensure(ctx, Template{
		Name:      "A4 Papel 250",
		Category:  a4,
		Unit:      unit,
		ListPrice: decimal.RequireFromString("5.05"),
		CostPrice: decimal.RequireFromString("2.5"),
		Salable:   true,
	})
	require.NoError(t, err)
	assert.True(t, created)

	product, err := p.Templates().Variant(ctx, id)
	require.NoError(t, err)
	salable, err := p.Templates().Products(ctx, "salable")
	require.NoError(t, err)
	assert.Equal(t, []bos.ID{product}, salable)
	purchasable, err := p.Templates().Products(ctx, "purchasable")
	require.NoError(t, err)
	assert.Empty(t, purchasable)
}

func TestPaymentTerms_Ensure(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)
	saber, _, err := p.Parties().Ensure(ctx, Party{Name: "Saber"})
	require.NoError(t, err)

	term, created, err := p.PaymentTerms().Ensure(ctx, "30 dias", 30)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, store.Count("account.invoice.payment_term.line.delta"))

	all, err := p.Parties().All(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Parties().SetPaymentTerm(ctx, all, term))
	rec, _ := store.Get(ModelParty, saber)
	assert.Equal(t, term, rec.Ref("customer_payment_term"))
	assert.Equal(t, term, rec.Ref("supplier_payment_term"))
}

func TestFiscalYears_Ensure(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	p := New(store)
	seq, _, err := p.Sequences().Ensure(ctx, Sequence{Name: "2024", Code: "account.move", Company: 1})
	require.NoError(t, err)

	fy := FiscalYear{
		Name:      "2024",
		Start:     bos.NewDate(2024, 1, 1),
		Company:   1,
		Sequences: map[string]bos.ID{"post_move_sequence": seq},
	}
	id, created, err := p.FiscalYears().Ensure(ctx, fy)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 12, store.Count("account.period"))

	rec, _ := store.Get("account.fiscalyear", id)
	end, _ := rec.Date("end_date")
	assert.Equal(t, "2024-12-31", end.String())

	_, created, err = p.FiscalYears().Ensure(ctx, fy)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 12, store.Count("account.period"), "periods are created once")
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	reg := &countingRegistry{counts: map[string]float64{}}
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	p := New(memstore.NewPlatform(), WithMetrics(m))

	_, _, err = p.Parties().Ensure(ctx, Party{Name: "Saber"})
	require.NoError(t, err)
	_, _, err = p.Parties().Ensure(ctx, Party{Name: "Saber"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, reg.counts["party.party/created"])
	assert.Equal(t, 1.0, reg.counts["party.party/found"])
}

// countingRegistry records counter values keyed by "label1/label2".
type countingRegistry struct {
	counts map[string]float64
}

func (r *countingRegistry) NewGauge(prometheus.GaugeOpts) (metrics.Gauge, error) {
	return nil, errors.New("not supported")
}

func (r *countingRegistry) NewGaugeVec(prometheus.GaugeOpts, []string) (metrics.GaugeVec, error) {
	return nil, errors.New("not supported")
}

func (r *countingRegistry) NewCounter(prometheus.CounterOpts) (metrics.Counter, error) {
	return nil, errors.New("not supported")
}

func (r *countingRegistry) NewCounterVec(_ prometheus.CounterOpts, labels []string) (metrics.CounterVec, error) {
	return &countingVec{reg: r, labels: labels}, nil
}

type countingVec struct {
	reg    *countingRegistry
	labels []string
}

func (v *countingVec) With(l prometheus.Labels) metrics.Counter {
	key := ""
	for i, name := range v.labels {
		if i > 0 {
			key += "/"
		}
		key += l[name]
	}
	return &countingCounter{reg: v.reg, key: key}
}

type countingCounter struct {
	reg *countingRegistry
	key string
}

func (c *countingCounter) Inc()          { c.Add(1) }
func (c *countingCounter) Add(v float64) { c.reg.counts[c.key] += v }
