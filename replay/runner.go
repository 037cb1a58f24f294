package replay

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/metrics"
)

// Hook runs before a transition is applied to a document.
type Hook func(ctx context.Context, id bos.ID) error

// Hooks maps transition names to the hook run before them.
type Hooks map[string]Hook

// Runner applies chains to documents through a bos.Service.
type Runner struct {
	svc     bos.Service
	rand    *Rand
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger.With("component", "replay")
	}
}

// WithMetrics records created documents and applied transitions.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a Runner drawing from rand.
func NewRunner(svc bos.Service, rand *Rand, opts ...Option) *Runner {
	r := &Runner{
		svc:    svc,
		rand:   rand,
		logger: slog.Default().With("component", "replay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rand returns the randomness source.
func (r *Runner) Rand() *Rand {
	return r.rand
}

// Service returns the underlying service.
func (r *Runner) Service() bos.Service {
	return r.svc
}

// Create persists a document of model and counts it.
func (r *Runner) Create(ctx context.Context, model string, values bos.Record) (bos.ID, error) {
	id, err := bos.Model(r.svc, model).Create(ctx, values)
	if err != nil {
		return 0, err
	}
	r.metrics.created(model)
	return id, nil
}

// Advance draws a plan for the document and applies it: each transition in
// order, preceded by its hook, then the cancellation if drawn. A rejected
// transition aborts with an error wrapping bos.ErrTransition.
func (r *Runner) Advance(ctx context.Context, chain Chain, id bos.ID, past bool, hooks Hooks) (Plan, error) {
	plan := chain.Plan(r.rand, past)
	for _, t := range plan.Transitions {
		if hook, ok := hooks[t]; ok {
			if err := hook(ctx, id); err != nil {
				return plan, err
			}
		}
		if err := r.Apply(ctx, chain.Model, t, id); err != nil {
			return plan, err
		}
	}
	if plan.Cancelled {
		if err := r.Apply(ctx, chain.Model, chain.Cancel, id); err != nil {
			return plan, err
		}
	}
	r.logger.Debug("advanced document", "model", chain.Model, "id", id, "past", past,
		"transitions", plan.Transitions, "cancelled", plan.Cancelled)
	return plan, nil
}

// Apply applies one transition to documents.
func (r *Runner) Apply(ctx context.Context, model, transition string, ids ...bos.ID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := bos.Model(r.svc, model).Transition(ctx, transition, ids...); err != nil {
		return err
	}
	r.metrics.applied(model, transition, len(ids))
	return nil
}

// Metrics counts replay activity.
type Metrics struct {
	documents   metrics.CounterVec
	transitions metrics.CounterVec
}

// NewMetrics registers the replay counters.
func NewMetrics(reg metrics.Registry) (*Metrics, error) {
	documents, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_documents_created_total",
		Help: "Documents created by the replay, by model",
	}, []string{"model"})
	if err != nil {
		return nil, err
	}
	transitions, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_transitions_total",
		Help: "Workflow transitions applied by the replay, by model and transition",
	}, []string{"model", "transition"})
	if err != nil {
		return nil, err
	}
	return &Metrics{documents: documents, transitions: transitions}, nil
}

func (m *Metrics) created(model string) {
	if m == nil {
		return
	}
	m.documents.With(prometheus.Labels{"model": model}).Inc()
}

func (m *Metrics) applied(model, transition string, n int) {
	if m == nil {
		return
	}
	m.transitions.With(prometheus.Labels{"model": model, "transition": transition}).Add(float64(n))
}
