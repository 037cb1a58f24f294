// Package memstore provides an in-memory bos.Service. It evaluates domains,
// enforces registered document workflows and runs registered wizards, which
// is enough to exercise provisioning and replay logic without a platform.
//
// A bare Store knows nothing about any model. Use Relate, OneToMany,
// Workflow, Method, Wizard and Computed to teach it, or NewPlatform for a
// store preloaded with the behaviour demoseed relies on.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nomis52/demoseed/bos"
)

// Method implements a named model method or button. It runs without the
// store lock held and may call back into the store.
type Method func(ctx context.Context, s *Store, ids []bos.ID) (any, error)

// Transition is one legal state change of a document workflow.
type Transition struct {
	Name string
	From []string
	To   string
	// Apply runs after the state change, e.g. to create follow-up documents.
	Apply func(ctx context.Context, s *Store, id bos.ID) error
}

// WizardFunc runs one state of a wizard and returns the next state together
// with the values proposed for its form.
type WizardFunc func(ctx context.Context, s *Store, state string, form bos.Record, targets []bos.ID) (string, bos.Record, error)

// ComputeFunc derives a field value at read time.
type ComputeFunc func(s *Store, rec bos.Record) any

type table struct {
	next bos.ID
	rows map[bos.ID]bos.Record
}

type one2many struct {
	target  string
	inverse string
}

// Store is a thread-safe in-memory bos.Service.
type Store struct {
	mu sync.Mutex

	tables      map[string]*table
	relations   map[string]map[string]string
	children    map[string]map[string]one2many
	defaults    map[string]bos.Record
	initial     map[string]string
	transitions map[string]map[string]Transition
	methods     map[string]map[string]Method
	computed    map[string]map[string]ComputeFunc
	wizards     map[string]WizardFunc

	sessions    map[bos.ID]string
	nextSession bos.ID
	prefs       bos.Record
	calls       []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tables:      make(map[string]*table),
		relations:   make(map[string]map[string]string),
		children:    make(map[string]map[string]one2many),
		defaults:    make(map[string]bos.Record),
		initial:     make(map[string]string),
		transitions: make(map[string]map[string]Transition),
		methods:     make(map[string]map[string]Method),
		computed:    make(map[string]map[string]ComputeFunc),
		wizards:     make(map[string]WizardFunc),
		sessions:    make(map[bos.ID]string),
		prefs:       bos.Record{},
	}
}

// Relate declares field of model as a many2one to target, making dotted
// domain paths through it resolvable.
func (s *Store) Relate(model, field, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.relations[model] == nil {
		s.relations[model] = make(map[string]string)
	}
	s.relations[model][field] = target
}

// OneToMany declares field of model as a one2many of target records whose
// inverse many2one is inverse.
func (s *Store) OneToMany(model, field, target, inverse string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.children[model] == nil {
		s.children[model] = make(map[string]one2many)
	}
	s.children[model][field] = one2many{target: target, inverse: inverse}
}

// Default sets values applied to every new record of model.
func (s *Store) Default(model string, values bos.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[model] = values.Clone()
}

// Workflow registers the state machine of a document model. New records
// start in initial unless they are created with an explicit state.
func (s *Store) Workflow(model, initial string, transitions ...Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initial[model] = initial
	if s.transitions[model] == nil {
		s.transitions[model] = make(map[string]Transition)
	}
	for _, t := range transitions {
		s.transitions[model][t.Name] = t
	}
}

// Method registers a named method on model.
func (s *Store) Method(model, name string, m Method) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.methods[model] == nil {
		s.methods[model] = make(map[string]Method)
	}
	s.methods[model][name] = m
}

// Computed registers a field derived at read time.
func (s *Store) Computed(model, field string, f ComputeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.computed[model] == nil {
		s.computed[model] = make(map[string]ComputeFunc)
	}
	s.computed[model][field] = f
}

// Wizard registers a wizard.
func (s *Store) Wizard(name string, f WizardFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wizards[name] = f
}

// SetPreferences replaces the user preferences returned by Preferences.
func (s *Store) SetPreferences(prefs bos.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs.Clone()
}

// Insert stores a record directly, bypassing defaults and workflows.
func (s *Store) Insert(model string, values bos.Record) bos.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(model, values.Clone())
}

// Get returns a copy of a stored record.
func (s *Store) Get(model string, id bos.ID) (bos.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table(model).rows[id]
	if !ok {
		return nil, false
	}
	return s.view(model, rec, nil), true
}

// All returns copies of every record of model ordered by ID.
func (s *Store) All(model string) []bos.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model)
	out := make([]bos.Record, 0, len(t.rows))
	for _, id := range sortedIDs(t.rows) {
		out = append(out, s.view(model, t.rows[id], nil))
	}
	return out
}

// Count returns the number of records of model.
func (s *Store) Count(model string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table(model).rows)
}

// Calls returns the "model.method" log of every Call and wizard phase.
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Search implements bos.Service.
func (s *Store) Search(_ context.Context, model string, domain bos.Domain) ([]bos.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model)
	var ids []bos.ID
	for _, id := range sortedIDs(t.rows) {
		ok, err := s.matchLocked(model, t.rows[id], domain)
		if err != nil {
			return nil, &bos.RemoteError{Method: model + ".search", Message: err.Error()}
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Read implements bos.Service.
func (s *Store) Read(_ context.Context, model string, ids []bos.ID, fields ...string) ([]bos.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model)
	out := make([]bos.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := t.rows[id]
		if !ok {
			return nil, &bos.RemoteError{Method: model + ".read", Message: fmt.Sprintf("record %d does not exist", id)}
		}
		out = append(out, s.view(model, rec, fields))
	}
	return out, nil
}

// Create implements bos.Service.
func (s *Store) Create(_ context.Context, model string, values ...bos.Record) ([]bos.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]bos.ID, 0, len(values))
	for _, v := range values {
		id, err := s.createLocked(model, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Write implements bos.Service.
func (s *Store) Write(_ context.Context, model string, ids []bos.ID, values bos.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model)
	for _, id := range ids {
		rec, ok := t.rows[id]
		if !ok {
			return &bos.RemoteError{Method: model + ".write", Message: fmt.Sprintf("record %d does not exist", id)}
		}
		if err := s.assignLocked(model, id, rec, values); err != nil {
			return err
		}
	}
	return nil
}

// Call implements bos.Service. Registered methods take precedence over
// workflow transitions of the same name.
func (s *Store) Call(ctx context.Context, model, method string, ids []bos.ID) (any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, model+"."+method)
	m, isMethod := s.methods[model][method]
	tr, isTransition := s.transitions[model][method]
	s.mu.Unlock()

	switch {
	case isMethod:
		return m(ctx, s, ids)
	case isTransition:
		return nil, s.transition(ctx, model, tr, ids)
	}
	return nil, &bos.RemoteError{Method: model + "." + method, Message: "method does not exist"}
}

func (s *Store) transition(ctx context.Context, model string, tr Transition, ids []bos.ID) error {
	s.mu.Lock()
	t := s.table(model)
	for _, id := range ids {
		rec, ok := t.rows[id]
		if !ok {
			s.mu.Unlock()
			return &bos.RemoteError{Method: model + "." + tr.Name, Message: fmt.Sprintf("record %d does not exist", id)}
		}
		state := rec.String("state")
		if !contains(tr.From, state) {
			s.mu.Unlock()
			return &bos.TransitionError{Model: model, Transition: tr.Name, ID: id, State: state}
		}
	}
	for _, id := range ids {
		t.rows[id]["state"] = tr.To
	}
	s.mu.Unlock()

	if tr.Apply == nil {
		return nil
	}
	for _, id := range ids {
		if err := tr.Apply(ctx, s, id); err != nil {
			return err
		}
	}
	return nil
}

// WizardCreate implements bos.Service.
func (s *Store) WizardCreate(_ context.Context, name string) (bos.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wizards[name]; !ok {
		return 0, &bos.RemoteError{Method: "wizard." + name + ".create", Message: "wizard does not exist"}
	}
	s.nextSession++
	s.sessions[s.nextSession] = name
	return s.nextSession, nil
}

// WizardExecute implements bos.Service.
func (s *Store) WizardExecute(ctx context.Context, name string, id bos.ID, state string, form bos.Record, targets []bos.ID) (string, bos.Record, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name+"."+state)
	open := s.sessions[id] == name
	f := s.wizards[name]
	s.mu.Unlock()

	if !open {
		return "", nil, &bos.RemoteError{Method: "wizard." + name + ".execute", Message: fmt.Sprintf("session %d is not open", id)}
	}
	return f(ctx, s, state, form.Clone(), targets)
}

// WizardDelete implements bos.Service.
func (s *Store) WizardDelete(_ context.Context, name string, id bos.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[id] != name {
		return &bos.RemoteError{Method: "wizard." + name + ".delete", Message: fmt.Sprintf("session %d is not open", id)}
	}
	delete(s.sessions, id)
	return nil
}

// Preferences implements bos.Service.
func (s *Store) Preferences(context.Context) (bos.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone(), nil
}

func (s *Store) table(model string) *table {
	t, ok := s.tables[model]
	if !ok {
		t = &table{rows: make(map[bos.ID]bos.Record)}
		s.tables[model] = t
	}
	return t
}

func (s *Store) insertLocked(model string, rec bos.Record) bos.ID {
	t := s.table(model)
	t.next++
	rec["id"] = t.next
	t.rows[t.next] = rec
	return t.next
}

func (s *Store) createLocked(model string, values bos.Record) (bos.ID, error) {
	rec := s.defaults[model].Clone()
	if initial, ok := s.initial[model]; ok {
		rec["state"] = initial
	}
	id := s.insertLocked(model, rec)
	if err := s.assignLocked(model, id, rec, values); err != nil {
		delete(s.table(model).rows, id)
		return 0, err
	}
	return id, nil
}

func (s *Store) assignLocked(model string, id bos.ID, rec, values bos.Record) error {
	for k, v := range values {
		if k == "id" {
			continue
		}
		switch v := v.(type) {
		case bos.Children:
			rel, ok := s.children[model][k]
			if !ok {
				return &bos.RemoteError{Method: model + ".write", Message: fmt.Sprintf("field %s is not a one2many", k)}
			}
			ids := rec.Refs(k)
			for _, child := range v {
				child = child.Clone()
				if rel.inverse != "" {
					child[rel.inverse] = id
				}
				cid, err := s.createLocked(rel.target, child)
				if err != nil {
					return err
				}
				ids = append(ids, cid)
			}
			rec[k] = ids
		case bos.Add:
			ids := rec.Refs(k)
			rel, ok := s.children[model][k]
			for _, cid := range v {
				if containsID(ids, cid) {
					continue
				}
				if ok && rel.inverse != "" {
					if child, exists := s.table(rel.target).rows[cid]; exists {
						child[rel.inverse] = id
					}
				}
				ids = append(ids, cid)
			}
			rec[k] = ids
		case []bos.ID:
			rec[k] = append([]bos.ID(nil), v...)
		default:
			rec[k] = v
		}
	}
	return nil
}

// view copies rec, restricted to fields when given, with computed fields
// filled in.
func (s *Store) view(model string, rec bos.Record, fields []string) bos.Record {
	out := bos.Record{"id": rec["id"]}
	want := func(f string) bool { return len(fields) == 0 || contains(fields, f) }
	for k, v := range rec {
		if !want(k) {
			continue
		}
		if ids, ok := v.([]bos.ID); ok {
			v = append([]bos.ID(nil), ids...)
		}
		out[k] = v
	}
	for k, f := range s.computed[model] {
		if want(k) {
			out[k] = f(s, rec)
		}
	}
	return out
}

func (s *Store) matchLocked(model string, rec bos.Record, domain bos.Domain) (bool, error) {
	for _, c := range domain {
		v, err := s.resolveLocked(model, rec, c.Path())
		if err != nil {
			return false, err
		}
		ok, err := compare(c.Op, v, c.Value)
		if err != nil {
			return false, fmt.Errorf("%s: %w", c, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// resolveLocked follows a dotted path through many2one relations.
func (s *Store) resolveLocked(model string, rec bos.Record, path []string) (any, error) {
	for i, field := range path {
		if i == len(path)-1 {
			if f, ok := s.computed[model][field]; ok {
				return f(s, rec), nil
			}
			return rec[field], nil
		}
		target, ok := s.relations[model][field]
		if !ok {
			return nil, fmt.Errorf("%s.%s is not a relation", model, field)
		}
		next, ok := s.table(target).rows[rec.Ref(field)]
		if !ok {
			return nil, nil
		}
		model, rec = target, next
	}
	return nil, nil
}

// Lookup returns the stored record without copying. ComputeFuncs run with
// the store lock held and must use Lookup rather than Get.
func (s *Store) Lookup(model string, id bos.ID) bos.Record {
	return s.table(model).rows[id]
}

func compare(op bos.Op, have, want any) (bool, error) {
	switch op {
	case bos.Eq:
		return equal(have, want), nil
	case bos.NotEq:
		return !equal(have, want), nil
	case bos.In, bos.NotIn:
		rv := reflect.ValueOf(want)
		if rv.Kind() != reflect.Slice {
			return false, fmt.Errorf("operator %q needs a list, got %T", op, want)
		}
		found := false
		for i := 0; i < rv.Len(); i++ {
			if equal(have, rv.Index(i).Interface()) {
				found = true
				break
			}
		}
		return found == (op == bos.In), nil
	case bos.ILike, bos.NotILike:
		pattern, ok := want.(string)
		if !ok {
			return false, fmt.Errorf("operator %q needs a string, got %T", op, want)
		}
		str, _ := have.(string)
		return like(pattern, str) == (op == bos.ILike), nil
	case bos.Lt, bos.Le, bos.Gt, bos.Ge:
		if have == nil || want == nil {
			return false, nil
		}
		c, err := order(have, want)
		if err != nil {
			return false, err
		}
		switch op {
		case bos.Lt:
			return c < 0, nil
		case bos.Le:
			return c <= 0, nil
		case bos.Gt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}

func like(pattern, s string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String()).MatchString(s)
}

func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Equal(db)
		}
		return false
	}
	if da, ok := a.(bos.Date); ok {
		if db, ok := b.(bos.Date); ok {
			return da.Equal(db)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func order(a, b any) (int, error) {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case decimal.Decimal:
		if y, ok := b.(decimal.Decimal); ok {
			return x.Cmp(y), nil
		}
	case bos.Date:
		if y, ok := b.(bos.Date); ok {
			return x.Compare(y.Time), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("cannot order %T and %T", a, b)
}

// normalize maps numeric kinds to decimals and empty references to nil.
func normalize(v any) any {
	switch x := v.(type) {
	case bos.ID:
		if x == 0 {
			return nil
		}
		return decimal.NewFromInt(int64(x))
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case float64:
		return decimal.NewFromFloat(x)
	}
	return v
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func containsID(ids []bos.ID, id bos.ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func sortedIDs(rows map[bos.ID]bos.Record) []bos.ID {
	ids := make([]bos.ID, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var _ bos.Service = (*Store)(nil)
