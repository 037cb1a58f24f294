package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivityID(t *testing.T) {
	id := ActivityID{
		Module: "github.com/nomis52/demoseed/workflows/seed",
		Type:   "Parties",
	}

	assert.Equal(t, "github.com/nomis52/demoseed/workflows/seed.Parties", id.String())

	assert.True(t, id.Equal(ActivityID{Module: id.Module, Type: "Parties"}))
	assert.False(t, id.Equal(ActivityID{Module: "github.com/vendor/lib/steps", Type: "Parties"}))
}

func TestActivityID_ShortString(t *testing.T) {
	tests := []struct {
		name string
		id   ActivityID
		want string
	}{
		{"full path", ActivityID{Module: "github.com/nomis52/demoseed/workflows/seed", Type: "Sales"}, "seed.Sales"},
		{"single segment", ActivityID{Module: "seed", Type: "Sales"}, "seed.Sales"},
		{"no module", ActivityID{Type: "Sales"}, "Sales"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.ShortString())
		})
	}
}

func TestGetActivityID(t *testing.T) {
	id := GetActivityID(&ActivateModules{})
	assert.Equal(t, ActivityID{Module: "github.com/nomis52/demoseed/workflow", Type: "ActivateModules"}, id)
}

func TestActivityState_String(t *testing.T) {
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "unknown", ActivityState(42).String())
}
