// Package workflow runs activities sequentially in dependency order with
// dependency injection and per-activity gates.
//
// # Activities
//
// An activity is a pointer to a struct implementing Activity. Exported
// fields are filled before Init is called:
//
//   - fields tagged `config:"a.b"` receive the value at that path of the
//     config passed to WithConfig (field names, capitalized names or yaml
//     tags are matched)
//   - fields whose type has a factory registered with Provide receive the
//     factory's value for the activity
//   - fields whose type matches a value registered with Inject receive it
//   - pointer fields to another registered activity type receive that
//     activity and make it a dependency
//
// A blank field only orders activities:
//
//	type Sales struct {
//	    Parties *Parties  // access + ordering
//	    _       *Products // ordering only
//	}
//
// # Execution
//
// Execute validates the graph, calls Init on every activity, then runs them
// one at a time. Among activities whose dependencies are satisfied the one
// registered first runs first, so a workflow reads top to bottom the way it
// was assembled.
//
// Each activity carries a Gate. The gate is evaluated when the activity is
// reached, after every earlier activity has finished. A closed gate leaves
// the activity Disabled; a disabled dependency counts as satisfied, so
// dependents still run and must cope with the missing work.
//
// The first error stops the run: the failing activity ends Completed with
// its error and every activity not yet reached ends Skipped.
//
// # States
//
//	NotStarted -> Pending -> Running -> Completed
//	                      \-> Disabled
//	                      \-> Skipped
//
// Validation, cycle and Init failures leave every activity NotStarted.
//
// # Example
//
//	o := workflow.NewOrchestrator(workflow.WithConfig(cfg), workflow.WithLogger(logger))
//	workflow.Provide(o, workflow.Shared(svc))
//	o.AddActivity(&Activate{})
//	o.AddGated(&Parties{}, func() bool { return activate.Newly("party") })
//	err := o.Execute(ctx)
package workflow
