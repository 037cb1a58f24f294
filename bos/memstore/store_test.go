package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/bos"
)

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Relate("party.party", "country", "country.country")
	ar := s.Insert("country.country", bos.Record{"code": "AR"})
	uy := s.Insert("country.country", bos.Record{"code": "UY"})
	museo := s.Insert("party.party", bos.Record{"name": "Museo Nacional", "country": ar, "rank": 3})
	saber := s.Insert("party.party", bos.Record{"name": "Saber", "country": uy, "rank": 1})
	nobody := s.Insert("party.party", bos.Record{"name": "Nobody"})

	tests := []struct {
		name   string
		domain bos.Domain
		want   []bos.ID
	}{
		{"empty domain matches all", nil, []bos.ID{museo, saber, nobody}},
		{"equality", bos.Where("name", bos.Eq, "Saber"), []bos.ID{saber}},
		{"inequality", bos.Where("name", bos.NotEq, "Saber"), []bos.ID{museo, nobody}},
		{"null reference", bos.Where("country", bos.Eq, nil), []bos.ID{nobody}},
		{"non null reference", bos.Where("country", bos.NotEq, nil), []bos.ID{museo, saber}},
		{"in", bos.Where("name", bos.In, []string{"Saber", "Nobody"}), []bos.ID{saber, nobody}},
		{"not in", bos.Where("name", bos.NotIn, []string{"Saber"}), []bos.ID{museo, nobody}},
		{"ilike", bos.Where("name", bos.ILike, "%nacional%"), []bos.ID{museo}},
		{"not ilike", bos.Where("name", bos.NotILike, "%o%"), []bos.ID{saber}},
		{"dotted path", bos.Where("country.code", bos.Eq, "AR"), []bos.ID{museo}},
		{"ordering", bos.Where("rank", bos.Gt, 1), []bos.ID{museo}},
		{"conjunction", bos.Where("rank", bos.Ge, 1).And("country.code", bos.Eq, "UY"), []bos.ID{saber}},
		{"reference by id", bos.Where("country", bos.Eq, ar), []bos.ID{museo}},
		{"no match", bos.Where("name", bos.Eq, "Missing"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := s.Search(ctx, "party.party", tt.domain)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_SearchUnknownRelation(t *testing.T) {
	s := New()
	s.Insert("party.party", bos.Record{"name": "Saber"})

	_, err := s.Search(context.Background(), "party.party", bos.Where("country.code", bos.Eq, "AR"))
	var remote *bos.RemoteError
	require.ErrorAs(t, err, &remote)
}

func TestStore_CreateWithChildren(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.OneToMany("party.party", "addresses", "party.address", "party")
	s.OneToMany("res.user", "groups", "res.group", "")
	g := s.Insert("res.group", bos.Record{"name": "Employee"})

	ids, err := s.Create(ctx, "party.party", bos.Record{
		"name":      "Biblioteca Utopia",
		"addresses": bos.Children{{"street": "Corrientes 1543"}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	party, ok := s.Get("party.party", ids[0])
	require.True(t, ok)
	addresses := party.Refs("addresses")
	require.Len(t, addresses, 1)
	address, ok := s.Get("party.address", addresses[0])
	require.True(t, ok)
	assert.Equal(t, ids[0], address.Ref("party"))
	assert.Equal(t, "Corrientes 1543", address.String("street"))

	users, err := s.Create(ctx, "res.user", bos.Record{"login": "demo", "groups": bos.Add{g}})
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "res.user", users, bos.Record{"groups": bos.Add{g}}))
	user, _ := s.Get("res.user", users[0])
	assert.Equal(t, []bos.ID{g}, user.Refs("groups"), "adding a linked record twice keeps one link")
}

func TestStore_CreateRejectsUnknownChildren(t *testing.T) {
	s := New()
	_, err := s.Create(context.Background(), "party.party", bos.Record{"addresses": bos.Children{{}}})
	require.Error(t, err)
	assert.Zero(t, s.Count("party.party"))
}

func TestStore_ReadFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := s.Insert("product.template", bos.Record{"name": "A4 Papel 250", "list_price": decimal.RequireFromString("5.05")})

	records, err := s.Read(ctx, "product.template", []bos.ID{id}, "list_price")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID())
	assert.NotContains(t, records[0], "name")
	assert.True(t, records[0].Decimal("list_price").Equal(decimal.RequireFromString("5.05")))

	_, err = s.Read(ctx, "product.template", []bos.ID{id + 1})
	require.Error(t, err)
}

func TestStore_Workflow(t *testing.T) {
	ctx := context.Background()
	s := New()
	var applied []bos.ID
	s.Workflow("sale.sale", "draft",
		Transition{Name: "quote", From: []string{"draft"}, To: "quotation"},
		Transition{Name: "confirm", From: []string{"quotation"}, To: "confirmed", Apply: func(_ context.Context, _ *Store, id bos.ID) error {
			applied = append(applied, id)
			return nil
		}},
	)

	ids, err := s.Create(ctx, "sale.sale", bos.Record{"party": 1})
	require.NoError(t, err)
	sale, _ := s.Get("sale.sale", ids[0])
	assert.Equal(t, "draft", sale.String("state"))

	_, err = s.Call(ctx, "sale.sale", "confirm", ids)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bos.ErrTransition))
	var te *bos.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "draft", te.State)

	_, err = s.Call(ctx, "sale.sale", "quote", ids)
	require.NoError(t, err)
	_, err = s.Call(ctx, "sale.sale", "confirm", ids)
	require.NoError(t, err)
	sale, _ = s.Get("sale.sale", ids[0])
	assert.Equal(t, "confirmed", sale.String("state"))
	assert.Equal(t, ids, applied)
	assert.Equal(t, []string{"sale.sale.confirm", "sale.sale.quote", "sale.sale.confirm"}, s.Calls())

	_, err = s.Call(ctx, "sale.sale", "explode", ids)
	var remote *bos.RemoteError
	require.ErrorAs(t, err, &remote)
}

func TestStore_Wizard(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Wizard("party.merge", func(_ context.Context, _ *Store, state string, form bos.Record, targets []bos.ID) (string, bos.Record, error) {
		if state == "start" {
			return "merge", bos.Record{"target": targets[0]}, nil
		}
		return bos.EndState, nil, nil
	})

	w, err := bos.StartWizard(ctx, s, "party.merge", 7)
	require.NoError(t, err)
	require.NoError(t, w.Execute(ctx, "start"))
	assert.Equal(t, "merge", w.State)
	assert.Equal(t, bos.ID(7), w.Form.Ref("target"))
	require.NoError(t, w.Execute(ctx, "merge"))
	assert.Equal(t, bos.EndState, w.State)
	require.NoError(t, w.Close(ctx))

	assert.Error(t, w.Execute(ctx, "merge"), "closed sessions reject phases")

	_, err = bos.StartWizard(ctx, s, "party.split")
	assert.Error(t, err)
}

func TestPlatform_ModuleActivation(t *testing.T) {
	ctx := context.Background()
	p := NewPlatform()

	ids, err := p.Search(ctx, "ir.module", bos.Where("name", bos.Eq, "company"))
	require.NoError(t, err)
	_, err = p.Call(ctx, "ir.module", "activate", ids)
	require.NoError(t, err)

	for _, name := range []string{"company", "party", "country", "currency"} {
		assert.Equal(t, ToActivate, p.ModuleState(name), name)
	}
	assert.Equal(t, Activated, p.ModuleState("ir"))
	assert.Equal(t, NotActivated, p.ModuleState("account"))

	w, err := bos.StartWizard(ctx, p, "ir.module.activate_upgrade")
	require.NoError(t, err)
	require.NoError(t, w.Execute(ctx, "upgrade"))
	assert.Equal(t, Activated, p.ModuleState("company"))
	assert.Equal(t, 4, p.Count("ir.module.config_wizard.item"))
}

func TestPlatform_InvoicePosting(t *testing.T) {
	ctx := context.Background()
	p := NewPlatform()
	party := p.Insert("party.party", bos.Record{"name": "Saber"})
	p.Insert("account.account", bos.Record{"code": "2111", "kind": "payable"})
	ids, err := p.Create(ctx, "account.invoice", bos.Record{"type": "in", "party": party, "total_amount": decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = p.Call(ctx, "account.invoice", "post", ids)
	require.NoError(t, err)

	lines, err := p.Search(ctx, "account.move.line", bos.Where("account.kind", bos.Eq, "payable").
		And("move.state", bos.Eq, "posted").
		And("reconciliation", bos.Eq, nil).
		And("payment_amount", bos.NotEq, 0))
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	inv, _ := p.Get("account.invoice", ids[0])
	_, dated := inv.Date("invoice_date")
	assert.True(t, dated)
}
