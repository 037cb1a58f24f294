package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/nomis52/demoseed/logging"
)

var loggerType = reflect.TypeOf((*slog.Logger)(nil))

// Orchestrator runs activities one at a time in dependency order. Among
// activities whose dependencies are met, the one registered first runs
// first. Execution stops at the first failing activity.
type Orchestrator struct {
	config  interface{}
	logger  *slog.Logger
	logHook logging.LoggerHook

	injectedTypes map[reflect.Type]interface{}
	factories     map[reflect.Type]func(ActivityID) interface{}

	order         []ActivityID
	activityMap   map[ActivityID]Activity
	gates         map[ActivityID]Gate
	dependencyMap map[ActivityID][]ActivityID
	resultMap     map[ActivityID]*Result

	mu sync.RWMutex
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "orchestrator")
	}
}

// WithConfig sets the value `config:"a.b"` tags are resolved against.
func WithConfig(config interface{}) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config = config
	}
}

// WithLogHook wraps every *slog.Logger injected into an activity with the
// hook, keyed by the activity's ID.
func WithLogHook(hook logging.LoggerHook) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logHook = hook
	}
}

// NewOrchestrator creates an empty orchestrator.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		logger:        slog.Default().With("component", "orchestrator"),
		injectedTypes: make(map[reflect.Type]interface{}),
		factories:     make(map[reflect.Type]func(ActivityID) interface{}),
		activityMap:   make(map[ActivityID]Activity),
		gates:         make(map[ActivityID]Gate),
		dependencyMap: make(map[ActivityID][]ActivityID),
		resultMap:     make(map[ActivityID]*Result),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Inject registers values that are assigned to activity fields of the same
// type.
func (o *Orchestrator) Inject(deps ...interface{}) error {
	for _, dep := range deps {
		if dep == nil {
			o.logger.Warn("attempted to inject nil dependency")
			continue
		}

		depType := reflect.TypeOf(dep)
		if _, exists := o.injectedTypes[depType]; exists {
			return fmt.Errorf("dependency type %s already injected", depType.String())
		}
		o.injectedTypes[depType] = dep
		o.logger.Debug("dependency injected", "type", depType.String())
	}
	return nil
}

// AddActivity registers activities that always run.
func (o *Orchestrator) AddActivity(activities ...Activity) error {
	for _, activity := range activities {
		if err := o.AddGated(activity, Always); err != nil {
			return err
		}
	}
	return nil
}

// AddGated registers an activity that only runs when gate returns true at
// the moment it is reached. Results are available as soon as it returns.
func (o *Orchestrator) AddGated(activity Activity, gate Gate) error {
	id := GetActivityID(activity)

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.resultMap[id]; exists {
		return fmt.Errorf("activity of type %s already exists", id.String())
	}
	if gate == nil {
		gate = Always
	}
	o.order = append(o.order, id)
	o.activityMap[id] = activity
	o.gates[id] = gate
	o.resultMap[id] = &Result{State: NotStarted}
	o.logger.Debug("activity added", "activity_id", id.String(), "total", len(o.order))
	return nil
}

// Execute validates the graph, initializes every activity, then runs them
// sequentially. It returns the first error; activities not reached after a
// failure are marked Skipped.
func (o *Orchestrator) Execute(ctx context.Context) error {
	if len(o.order) == 0 {
		o.logger.Info("no activities to execute")
		return nil
	}

	o.logger.Info("starting execution", "activity_count", len(o.order))

	if err := o.buildDependencyGraph(); err != nil {
		o.logger.Error("dependency analysis failed", "error", err)
		o.setAll(NotStarted, fmt.Errorf("validation failed: %w", err))
		return fmt.Errorf("dependency analysis failed: %w", err)
	}

	runOrder, err := o.sortActivities()
	if err != nil {
		o.logger.Error("circular dependency detected", "error", err)
		return fmt.Errorf("circular dependency detected: %w", err)
	}

	for _, id := range runOrder {
		if err := o.activityMap[id].Init(); err != nil {
			o.logger.Error("activity initialization failed", "activity_id", id.String(), "error", err)
			o.setAll(NotStarted, fmt.Errorf("initialization blocked by %s: %w", id.String(), err))
			return fmt.Errorf("activity %s initialization failed: %w", id.String(), err)
		}
	}

	o.setAll(Pending, nil)

	for i, id := range runOrder {
		activityLogger := o.logger.With("activity_id", id.ShortString())

		if err := ctx.Err(); err != nil {
			o.skipRemaining(runOrder[i:], fmt.Errorf("cancelled: %w", err))
			return fmt.Errorf("activity %s cancelled: %w", id.String(), err)
		}

		if err := o.checkDependencies(id); err != nil {
			o.skipRemaining(runOrder[i:], err)
			return fmt.Errorf("activity %s: %w", id.String(), err)
		}

		if !o.gates[id]() {
			activityLogger.Info("activity disabled")
			o.setResult(id, &Result{State: Disabled})
			continue
		}

		activityLogger.Info("executing activity")
		o.setResult(id, &Result{State: Running})
		err := o.activityMap[id].Execute(ctx)
		o.setResult(id, &Result{State: Completed, Error: err})
		if err != nil {
			activityLogger.Error("activity execution failed", "error", err)
			o.skipRemaining(runOrder[i+1:], fmt.Errorf("not run: %s failed", id.String()))
			return fmt.Errorf("activity %s failed: %w", id.String(), err)
		}
		activityLogger.Info("activity completed")
	}

	o.logger.Info("execution completed successfully")
	return nil
}

func (o *Orchestrator) checkDependencies(id ActivityID) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, depID := range o.dependencyMap[id] {
		if r := o.resultMap[depID]; r == nil || !r.IsSatisfied() {
			return fmt.Errorf("dependency %s not satisfied", depID.String())
		}
	}
	return nil
}

func (o *Orchestrator) setResult(id ActivityID, r *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resultMap[id] = r
}

func (o *Orchestrator) setAll(state ActivityState, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id := range o.resultMap {
		o.resultMap[id] = &Result{State: state, Error: err}
	}
}

func (o *Orchestrator) skipRemaining(ids []ActivityID, reason error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		o.resultMap[id] = &Result{State: Skipped, Error: reason}
	}
}

// buildDependencyGraph injects config, typed values and factories, wires
// activity pointer fields and records the dependency edges.
func (o *Orchestrator) buildDependencyGraph() error {
	activityTypeMap := make(map[reflect.Type]ActivityID, len(o.order))
	for _, id := range o.order {
		activityTypeMap[reflect.TypeOf(o.activityMap[id]).Elem()] = id
	}

	for _, id := range o.order {
		if err := o.injectFields(o.activityMap[id], id); err != nil {
			return fmt.Errorf("injection failed for %s: %w", id.String(), err)
		}
	}

	for _, id := range o.order {
		var dependencies []ActivityID

		activityValue := reflect.ValueOf(o.activityMap[id]).Elem()
		activityType := activityValue.Type()

		for i := 0; i < activityType.NumField(); i++ {
			field := activityType.Field(i)
			fieldValue := activityValue.Field(i)

			if field.Tag.Get("config") != "" || o.isProvided(field.Type) {
				continue
			}

			if field.Type.Kind() == reflect.Ptr {
				depID, exists := activityTypeMap[field.Type.Elem()]
				if !exists {
					continue
				}
				dependencies = append(dependencies, depID)
				// Unnamed fields only order the activities.
				if field.Name != "_" && fieldValue.CanSet() {
					fieldValue.Set(reflect.ValueOf(o.activityMap[depID]))
				}
			} else if _, exists := activityTypeMap[field.Type]; exists {
				return fmt.Errorf("activity %s dependency field %s must be a pointer (*%s), not a struct",
					id.String(), field.Name, field.Type.Name())
			}
		}

		o.dependencyMap[id] = dependencies
	}

	return o.validateDependencies()
}

func (o *Orchestrator) isProvided(t reflect.Type) bool {
	if _, ok := o.injectedTypes[t]; ok {
		return true
	}
	_, ok := o.factories[t]
	return ok
}

func (o *Orchestrator) injectFields(activity Activity, id ActivityID) error {
	activityValue := reflect.ValueOf(activity).Elem()
	activityType := activityValue.Type()

	for i := 0; i < activityType.NumField(); i++ {
		field := activityType.Field(i)
		fieldValue := activityValue.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if configTag := field.Tag.Get("config"); configTag != "" {
			if err := o.injectConfigValue(fieldValue, configTag); err != nil {
				return fmt.Errorf("config injection failed for field %s: %w", field.Name, err)
			}
			continue
		}

		var value interface{}
		if factory, ok := o.factories[field.Type]; ok {
			value = factory(id)
		} else if injected, ok := o.injectedTypes[field.Type]; ok {
			value = injected
		} else {
			continue
		}

		if field.Type == loggerType && o.logHook != nil {
			if base, ok := value.(*slog.Logger); ok && base != nil {
				value = o.logHook.LoggerForActivity(base, id.String())
			}
		}
		if value == nil {
			continue
		}
		fieldValue.Set(reflect.ValueOf(value))
	}
	return nil
}

// sortActivities orders activities so each runs after its dependencies.
// Ties are broken by registration order.
func (o *Orchestrator) sortActivities() ([]ActivityID, error) {
	inDegree := make(map[ActivityID]int, len(o.order))
	for _, id := range o.order {
		inDegree[id] = len(o.dependencyMap[id])
	}

	done := make(map[ActivityID]bool, len(o.order))
	sorted := make([]ActivityID, 0, len(o.order))
	for len(sorted) < len(o.order) {
		next := -1
		for i, id := range o.order {
			if !done[id] && inDegree[id] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("only %d of %d activities could be ordered", len(sorted), len(o.order))
		}

		current := o.order[next]
		done[current] = true
		sorted = append(sorted, current)
		for _, id := range o.order {
			for _, dep := range o.dependencyMap[id] {
				if dep.Equal(current) {
					inDegree[id]--
				}
			}
		}
	}
	return sorted, nil
}

// validateDependencies checks that every named pointer field was filled.
func (o *Orchestrator) validateDependencies() error {
	for _, id := range o.order {
		activityValue := reflect.ValueOf(o.activityMap[id]).Elem()
		activityType := activityValue.Type()

		for i := 0; i < activityType.NumField(); i++ {
			field := activityType.Field(i)
			fieldValue := activityValue.Field(i)

			if fieldValue.Kind() != reflect.Ptr || field.Tag.Get("config") != "" || field.Name == "_" {
				continue
			}
			if !field.IsExported() {
				continue
			}
			if fieldValue.IsNil() {
				return fmt.Errorf("activity %s has nil dependency: %s (%s)", id.String(), field.Name, field.Type.String())
			}
		}
	}
	return nil
}

// injectConfigValue resolves a dot separated path against the config. Each
// segment matches a field name, its capitalized or upper-case form, or a
// yaml tag.
func (o *Orchestrator) injectConfigValue(fieldValue reflect.Value, configPath string) error {
	if o.config == nil {
		return nil
	}

	value := reflect.ValueOf(o.config)
	for _, part := range strings.Split(configPath, ".") {
		for value.Kind() == reflect.Ptr {
			if value.IsNil() {
				return fmt.Errorf("config path %s: nil pointer before '%s'", configPath, part)
			}
			value = value.Elem()
		}
		if value.Kind() != reflect.Struct {
			return fmt.Errorf("config path %s: expected struct, got %s", configPath, value.Kind())
		}

		fieldVal := lookupField(value, part)
		if !fieldVal.IsValid() {
			return fmt.Errorf("config path %s: field for '%s' not found", configPath, part)
		}
		value = fieldVal
	}

	if !value.Type().AssignableTo(fieldValue.Type()) {
		return fmt.Errorf("config path %s: type %s not assignable to %s", configPath, value.Type(), fieldValue.Type())
	}
	fieldValue.Set(value)
	return nil
}

func lookupField(value reflect.Value, part string) reflect.Value {
	if f := value.FieldByName(part); f.IsValid() {
		return f
	}
	if f := value.FieldByName(strings.ToUpper(part[:1]) + part[1:]); f.IsValid() {
		return f
	}
	if f := value.FieldByName(strings.ToUpper(part)); f.IsValid() {
		return f
	}
	typ := value.Type()
	for i := 0; i < typ.NumField(); i++ {
		if name, _, _ := strings.Cut(typ.Field(i).Tag.Get("yaml"), ","); name == part {
			return value.Field(i)
		}
	}
	return reflect.Value{}
}

// GetResult returns the result of an activity, or nil if it is unknown.
func (o *Orchestrator) GetResult(id ActivityID) *Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.resultMap[id]
}

// GetResultByActivity returns the result of a registered activity.
func (o *Orchestrator) GetResultByActivity(activity Activity) *Result {
	return o.GetResult(GetActivityID(activity))
}

// GetAllResults returns a copy of every result.
func (o *Orchestrator) GetAllResults() map[ActivityID]*Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	results := make(map[ActivityID]*Result, len(o.resultMap))
	for id, result := range o.resultMap {
		results[id] = result
	}
	return results
}

// Order returns the activity IDs in registration order.
func (o *Orchestrator) Order() []ActivityID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]ActivityID(nil), o.order...)
}
