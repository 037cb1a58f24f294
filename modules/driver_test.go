package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/bos/memstore"
)

func TestDriver_Activate(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	d := NewDriver(store)

	act, err := d.Activate(ctx, []string{"party", "unknown_module"})
	require.NoError(t, err)

	assert.Equal(t, []string{"country", "currency", "party"}, act.ToActivate, "dependencies are pulled in")
	assert.Equal(t, []string{"country", "currency", "ir", "party", "res"}, act.Activated)
	assert.True(t, act.Newly("party"))
	assert.True(t, act.Active("party"))
	assert.False(t, act.Newly("ir"))
	assert.True(t, act.Active("ir"))
	assert.False(t, act.Active("company"))

	for _, item := range store.All("ir.module.config_wizard.item") {
		assert.Equal(t, "done", item.String("state"))
	}
}

func TestDriver_ActivateTwice(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	d := NewDriver(store)

	_, err := d.Activate(ctx, []string{"company"})
	require.NoError(t, err)
	act, err := d.Activate(ctx, []string{"company", "product"})
	require.NoError(t, err)

	assert.Equal(t, []string{"product"}, act.ToActivate)
	assert.False(t, act.Newly("company"))
	assert.True(t, act.Active("company"))
	assert.Contains(t, store.Calls(), "ir.module.upgrade", "active modules are upgraded")
}

func TestDriver_ActivateNothing(t *testing.T) {
	store := memstore.NewPlatform()
	d := NewDriver(store)

	act, err := d.Activate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, act.ToActivate)
	assert.Equal(t, []string{"ir", "res"}, act.Activated)
	assert.Equal(t, []string{"ir.module.activate_upgrade.upgrade"}, store.Calls())
}

func TestDriver_Upgrade(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewPlatform()
	d := NewDriver(store)
	_, err := d.Activate(ctx, []string{"party"})
	require.NoError(t, err)

	require.NoError(t, d.Upgrade(ctx, []string{"party"}))
	assert.Equal(t, memstore.Activated, store.ModuleState("party"))

	calls := store.Calls()
	assert.Equal(t, []string{"ir.module.upgrade", "ir.module.activate_upgrade.upgrade"}, calls[len(calls)-2:])

	require.NoError(t, d.Upgrade(ctx, nil), "nothing to upgrade still runs the wizard")
}

func TestActivation_Predicates(t *testing.T) {
	act := Activation{
		ToActivate: []string{"sale"},
		Activated:  []string{"company", "sale"},
	}

	tests := []struct {
		module string
		newly  bool
		active bool
	}{
		{"sale", true, true},
		{"company", false, true},
		{"purchase", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			assert.Equal(t, tt.newly, act.Newly(tt.module))
			assert.Equal(t, tt.active, act.Active(tt.module))
		})
	}
}

func TestDriver_RemoteFailure(t *testing.T) {
	store := memstore.New()
	store.Insert("ir.module", bos.Record{"name": "party", "state": "not activated"})
	d := NewDriver(store)

	_, err := d.Activate(context.Background(), []string{"party"})
	var remote *bos.RemoteError
	assert.ErrorAs(t, err, &remote, "a platform without the activate button fails the run")
}
