package workflow

import (
	"reflect"
)

// Factory builds the value injected into an activity's field of type T.
// It is called once per activity that declares such a field.
type Factory[T any] func(id ActivityID) T

// Shared returns a factory that hands every activity the same value.
func Shared[T any](v T) Factory[T] {
	return func(ActivityID) T { return v }
}

// Provide registers a factory for fields of type T. Factories take
// precedence over values registered with Inject.
func Provide[T any](o *Orchestrator, f Factory[T]) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	o.factories[t] = func(id ActivityID) interface{} {
		return f(id)
	}
	o.logger.Debug("factory registered", "type", t.String())
}
