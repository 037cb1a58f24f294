package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/demoseed/workflow"
)

// runStates are the activity outcomes exported per activity. Exactly one of
// them is 1 after a run.
var runStates = []string{"succeeded", "failed", "disabled", "skipped"}

// RunMetrics summarizes seeding runs.
type RunMetrics struct {
	lastRun    Gauge
	duration   Gauge
	success    Gauge
	runs       CounterVec
	activities GaugeVec
}

// NewRunMetrics registers the run summary metrics with reg.
func NewRunMetrics(reg Registry) (*RunMetrics, error) {
	lastRun, err := reg.NewGauge(prometheus.GaugeOpts{
		Name: "last_run_timestamp_seconds",
		Help: "Unix time the last seeding run finished.",
	})
	if err != nil {
		return nil, err
	}
	duration, err := reg.NewGauge(prometheus.GaugeOpts{
		Name: "last_run_duration_seconds",
		Help: "Wall time of the last seeding run.",
	})
	if err != nil {
		return nil, err
	}
	success, err := reg.NewGauge(prometheus.GaugeOpts{
		Name: "last_run_success",
		Help: "1 if the last seeding run succeeded, 0 otherwise.",
	})
	if err != nil {
		return nil, err
	}
	runs, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "runs_total",
		Help: "Seeding runs by outcome.",
	}, []string{"result"})
	if err != nil {
		return nil, err
	}
	activities, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activity_state",
		Help: "Outcome of each step in the last seeding run.",
	}, []string{"activity", "state"})
	if err != nil {
		return nil, err
	}
	return &RunMetrics{
		lastRun:    lastRun,
		duration:   duration,
		success:    success,
		runs:       runs,
		activities: activities,
	}, nil
}

// Observe records a finished run.
func (m *RunMetrics) Observe(results map[workflow.ActivityID]*workflow.Result, finished time.Time, took time.Duration, runErr error) {
	m.lastRun.Set(float64(finished.Unix()))
	m.duration.Set(took.Seconds())
	if runErr != nil {
		m.success.Set(0)
		m.runs.With(prometheus.Labels{"result": "failure"}).Inc()
	} else {
		m.success.Set(1)
		m.runs.With(prometheus.Labels{"result": "success"}).Inc()
	}

	for id, r := range results {
		outcome := resultState(r)
		for _, state := range runStates {
			v := 0.0
			if state == outcome {
				v = 1
			}
			m.activities.With(prometheus.Labels{"activity": id.Type, "state": state}).Set(v)
		}
	}
}

func resultState(r *workflow.Result) string {
	switch {
	case r.IsSuccess():
		return "succeeded"
	case r.State == workflow.Disabled:
		return "disabled"
	case r.State == workflow.Completed:
		return "failed"
	default:
		return "skipped"
	}
}

