package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nomis52/demoseed/modules"
	"github.com/nomis52/demoseed/workflow"
)

func TestPredicates(t *testing.T) {
	act := modules.Activation{
		ToActivate: []string{"sale"},
		Activated:  []string{"company", "party", "sale"},
	}

	tests := []struct {
		name string
		when Predicate
		want bool
	}{
		{"newly activated", Newly("sale"), true},
		{"active but not newly", Newly("company"), false},
		{"any of several newly", Newly("purchase", "sale"), true},
		{"active", Active("company"), true},
		{"inactive", Active("stock"), false},
		{"either first", Either(Newly("sale"), Active("stock")), true},
		{"either second", Either(Newly("party"), Active("party")), true},
		{"either none", Either(Newly("party"), Active("stock")), false},
		{"always", Always, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.when(act))
		})
	}
}

func TestSteps_Table(t *testing.T) {
	s := NewSteps()
	table := s.Table()
	assert.Len(t, table, 20)

	var names []string
	for _, step := range table {
		names = append(names, workflow.GetActivityID(step.Activity).Type)
	}
	assert.Equal(t, []string{
		"Activate", "Parties", "Company", "Chart", "CompanyPost", "Products",
		"PaymentTerms", "PointOfSale", "SalePOS", "Sales", "Purchases", "Stock",
		"InvoiceMaturation", "Vouchers", "Payments", "Statements", "Projects",
		"Timesheets", "Production", "Languages",
	}, names)
}

func TestSteps_Gates(t *testing.T) {
	s := NewSteps()
	gates := make(map[string]Predicate)
	for _, step := range s.Table() {
		gates[workflow.GetActivityID(step.Activity).Type] = step.When
	}

	rerun := modules.Activation{Activated: []string{"account", "account_invoice", "company", "party", "project", "stock"}}
	assert.True(t, gates["Parties"](rerun), "parties run whenever stock is active")
	assert.True(t, gates["Company"](rerun))
	assert.True(t, gates["InvoiceMaturation"](rerun))
	assert.True(t, gates["Projects"](rerun))
	assert.False(t, gates["Chart"](rerun), "the chart is only created once")
	assert.False(t, gates["Sales"](rerun))
	assert.False(t, gates["Stock"](rerun))
	assert.True(t, gates["Languages"](modules.Activation{}))
}

func TestDemoUser(t *testing.T) {
	tests := []struct {
		code, name string
		wantName   string
		wantLogin  string
		wantOK     bool
	}{
		{"en", "English", "Demo", "demo", true},
		{"es", "Spanish", "Demo Spanish", "demo_es", true},
		{"fr_FR", "French", "Demo French", "demo_fr", true},
		{"es_AR", "Spanish (Argentina)", "", "", false},
		{"x", "Broken", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			name, login, ok := demoUser(tt.code, tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantLogin, login)
		})
	}
}
