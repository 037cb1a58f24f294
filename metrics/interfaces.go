// Package metrics records what seeding runs did.
//
// The schedule server registers everything with a ScrapeRegistry served on
// /metrics. A one-shot run has nobody to scrape it, so the CLI collects into
// a PushRegistry and sends a single remote-write request when the run ends.
// Code that records metrics only sees the Registry interface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Gauge interface {
	Set(float64)
}

// Counter only goes up. Add panics on a negative value.
type Counter interface {
	Inc()
	Add(float64)
}

type GaugeVec interface {
	With(prometheus.Labels) Gauge
}

type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates metrics. Asking twice for the same name returns the
// metric already registered rather than an error, so a step can register
// its counters on every run.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounter(opts prometheus.CounterOpts) (Counter, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}
