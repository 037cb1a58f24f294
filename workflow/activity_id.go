package workflow

import (
	"path"
	"reflect"
)

// ActivityID names an activity by the package that declares it and its
// struct name, so two packages may both declare a Parties step.
type ActivityID struct {
	Module string // import path, e.g. github.com/nomis52/demoseed/workflows/seed
	Type   string // struct name, e.g. Parties
}

func (id ActivityID) String() string {
	return id.Module + "." + id.Type
}

// Equal reports whether both parts match.
func (id ActivityID) Equal(other ActivityID) bool {
	return id == other
}

// ShortString keeps only the last element of the module path: seed.Parties.
func (id ActivityID) ShortString() string {
	if id.Module == "" {
		return id.Type
	}
	return path.Base(id.Module) + "." + id.Type
}

// GetActivityID derives the id from the activity's pointer type.
func GetActivityID(activity Activity) ActivityID {
	t := reflect.TypeOf(activity).Elem()
	return ActivityID{Module: t.PkgPath(), Type: t.Name()}
}
