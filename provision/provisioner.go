// Package provision creates master data idempotently.
//
// Every entity is looked up by a unique key before it is created, so a run
// against a partially provisioned database never duplicates parties,
// companies, accounts or products. Existing matches are returned untouched.
//
// Example usage:
//
//	p := provision.New(svc, provision.WithLogger(logger))
//	id, created, err := p.Parties().Ensure(ctx, provision.Party{
//		Name:  "Saber",
//		TaxID: "30714546178",
//	})
package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/metrics"
)

// Builder produces the attributes of an entity that does not exist yet.
// It may resolve references through the service.
type Builder func(ctx context.Context) (bos.Record, error)

// Values returns a Builder for a fixed attribute set.
func Values(rec bos.Record) Builder {
	return func(context.Context) (bos.Record, error) {
		return rec, nil
	}
}

// Provisioner looks up and creates entities through a bos.Service.
// It is not safe for concurrent use.
type Provisioner struct {
	svc     bos.Service
	logger  *slog.Logger
	metrics *Metrics
	cache   map[string]bos.ID
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger.With("component", "provision")
	}
}

// WithMetrics records found and created entities.
func WithMetrics(m *Metrics) Option {
	return func(p *Provisioner) {
		p.metrics = m
	}
}

// New creates a Provisioner.
func New(svc bos.Service, opts ...Option) *Provisioner {
	p := &Provisioner{
		svc:    svc,
		logger: slog.Default().With("component", "provision"),
		cache:  make(map[string]bos.ID),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Service returns the underlying service.
func (p *Provisioner) Service() bos.Service {
	return p.svc
}

// Ensure returns the single record of model matching key, creating it from
// build when there is none. created reports whether a record was created.
// More than one match is an ambiguity error; an existing record is never
// modified.
func (p *Provisioner) Ensure(ctx context.Context, model string, key bos.Domain, build Builder) (id bos.ID, created bool, err error) {
	h := bos.Model(p.svc, model)
	ids, err := h.Find(ctx, key)
	if err != nil {
		return 0, false, err
	}
	switch len(ids) {
	case 0:
	case 1:
		p.logger.Debug("found existing record", "model", model, "key", key.String(), "id", ids[0])
		p.metrics.observe(model, "found")
		return ids[0], false, nil
	default:
		return 0, false, &bos.LookupError{Model: model, Domain: key, Matches: len(ids)}
	}

	values, err := build(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("building %s %s: %w", model, key, err)
	}
	id, err = h.Create(ctx, values)
	if err != nil {
		return 0, false, err
	}
	p.logger.Info("created record", "model", model, "key", key.String(), "id", id)
	p.metrics.observe(model, "created")
	return id, true, nil
}

// FindOne returns the single record of model matching key. Zero or several
// matches yield an error wrapping bos.ErrNotFound or bos.ErrAmbiguous.
func (p *Provisioner) FindOne(ctx context.Context, model string, key bos.Domain) (bos.ID, error) {
	return bos.Model(p.svc, model).FindOne(ctx, key)
}

// cached memoizes FindOne for reference data that never changes during a run.
func (p *Provisioner) cached(ctx context.Context, model string, key bos.Domain) (bos.ID, error) {
	k := model + " " + key.String()
	if id, ok := p.cache[k]; ok {
		return id, nil
	}
	id, err := p.FindOne(ctx, model, key)
	if err != nil {
		return 0, err
	}
	p.cache[k] = id
	return id, nil
}

// Metrics counts provisioning outcomes per model.
type Metrics struct {
	entities metrics.CounterVec
}

// NewMetrics registers the provisioning counters.
func NewMetrics(reg metrics.Registry) (*Metrics, error) {
	entities, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "provision_entities_total",
		Help: "Master data records looked up by unique key, by model and outcome (found or created)",
	}, []string{"model", "outcome"})
	if err != nil {
		return nil, err
	}
	return &Metrics{entities: entities}, nil
}

func (m *Metrics) observe(model, outcome string) {
	if m == nil {
		return
	}
	m.entities.With(prometheus.Labels{"model": model, "outcome": outcome}).Inc()
}
