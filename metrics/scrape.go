package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry backs the schedule server's /metrics endpoint. Besides the
// metrics asked for through Registry it exports the Go runtime, process and
// uptime collectors.
type ScrapeRegistry struct {
	prom      *prometheus.Registry
	namespace string
	started   time.Time
}

type ScrapeOption func(*ScrapeRegistry)

// WithNamespace prefixes every metric name with namespace and an
// underscore, matching the push registry's prefix.
func WithNamespace(namespace string) ScrapeOption {
	return func(r *ScrapeRegistry) { r.namespace = namespace }
}

func NewScrapeRegistry(opts ...ScrapeOption) (*ScrapeRegistry, error) {
	r := &ScrapeRegistry{prom: prometheus.NewRegistry(), started: time.Now()}
	for _, opt := range opts {
		opt(r)
	}

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the server started.",
	}, func() float64 { return time.Since(r.started).Seconds() })

	for name, c := range map[string]prometheus.Collector{
		"go":      collectors.NewGoCollector(),
		"process": collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		"uptime":  uptime,
	} {
		if err := r.prom.Register(c); err != nil {
			return nil, fmt.Errorf("registering %s collector: %w", name, err)
		}
	}
	return r, nil
}

func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// prometheus.Gauge and prometheus.Counter satisfy Gauge and Counter as is;
// only the vectors need adapting since their With returns the prometheus
// types.

func (r *ScrapeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	opts.Namespace = r.namespaceOr(opts.Namespace)
	return register(r.prom, opts.Name, prometheus.NewGauge(opts))
}

func (r *ScrapeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	opts.Namespace = r.namespaceOr(opts.Namespace)
	v, err := register(r.prom, opts.Name, prometheus.NewGaugeVec(opts, labels))
	if err != nil {
		return nil, err
	}
	return gaugeVec{v}, nil
}

func (r *ScrapeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	opts.Namespace = r.namespaceOr(opts.Namespace)
	return register(r.prom, opts.Name, prometheus.NewCounter(opts))
}

func (r *ScrapeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	opts.Namespace = r.namespaceOr(opts.Namespace)
	v, err := register(r.prom, opts.Name, prometheus.NewCounterVec(opts, labels))
	if err != nil {
		return nil, err
	}
	return counterVec{v}, nil
}

func (r *ScrapeRegistry) namespaceOr(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return r.namespace
}

// register adds c to reg. Registering an identical metric again returns the
// existing one, so every run of a long-lived process counts into the same
// series.
func register[T prometheus.Collector](reg *prometheus.Registry, name string, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("registering %q: %w", name, err)
}

type gaugeVec struct{ v *prometheus.GaugeVec }

func (g gaugeVec) With(labels prometheus.Labels) Gauge { return g.v.With(labels) }

type counterVec struct{ v *prometheus.CounterVec }

func (c counterVec) With(labels prometheus.Labels) Counter { return c.v.With(labels) }
