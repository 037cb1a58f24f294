package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// PushRegistry implements Registry for a one-shot run. Values are buffered
// in memory and sent to a VictoriaMetrics/Prometheus remote write endpoint
// in a single request by Flush.
type PushRegistry struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string
	now        func() time.Time

	mu     sync.Mutex
	series map[string]*sample
}

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint (e.g., "http://localhost:8428").
	URL string
	// Prefix is the metric name prefix. All metric names will be prefixed with this value
	// followed by an underscore.
	Prefix string
	// Job is the job label for all metrics.
	Job string
	// Instance is the instance label for all metrics.
	Instance string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

type sample struct {
	name   string
	labels prometheus.Labels
	value  float64
}

// NewPushRegistry creates a new PushRegistry that pushes metrics to the given URL.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &PushRegistry{
		url:        strings.TrimSuffix(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		now:        time.Now,
		series:     make(map[string]*sample),
	}
}

func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return &pushGauge{reg: r, name: opts.Name}, nil
}

func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return &pushGaugeVec{reg: r, name: opts.Name, labels: labels}, nil
}

func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return &pushCounter{reg: r, name: opts.Name}, nil
}

func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return &pushCounterVec{reg: r, name: opts.Name, labels: labels}, nil
}

// update applies f to the buffered value of one series.
func (r *PushRegistry) update(name string, labels prometheus.Labels, f func(float64) float64) {
	key := seriesKey(name, labels)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[key]
	if !ok {
		s = &sample{name: name, labels: labels}
		r.series[key] = s
	}
	s.value = f(s.value)
}

// Len returns the number of buffered series.
func (r *PushRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

// Flush sends every buffered series in one remote write request. All
// samples carry the same timestamp. Flushing an empty registry is a no-op.
func (r *PushRegistry) Flush(ctx context.Context) error {
	req := r.writeRequest()
	if len(req.Timeseries) == 0 {
		return nil
	}

	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}
	compressed := snappy.Encode(nil, data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (r *PushRegistry) writeRequest() *prompb.WriteRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ts := r.now().UnixMilli()
	req := &prompb.WriteRequest{Timeseries: make([]prompb.TimeSeries, 0, len(keys))}
	for _, k := range keys {
		s := r.series[k]
		req.Timeseries = append(req.Timeseries, prompb.TimeSeries{
			Labels:  r.promLabels(s),
			Samples: []prompb.Sample{{Value: s.value, Timestamp: ts}},
		})
	}
	return req
}

func (r *PushRegistry) promLabels(s *sample) []prompb.Label {
	name := s.name
	if r.prefix != "" {
		name = r.prefix + "_" + name
	}
	labels := make([]prompb.Label, 0, len(s.labels)+3)
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})
	if r.job != "" {
		labels = append(labels, prompb.Label{Name: "job", Value: r.job})
	}
	if r.instance != "" {
		labels = append(labels, prompb.Label{Name: "instance", Value: r.instance})
	}
	for k, v := range s.labels {
		labels = append(labels, prompb.Label{Name: k, Value: v})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels
}

type pushGauge struct {
	reg    *PushRegistry
	name   string
	labels prometheus.Labels
}

func (g *pushGauge) Set(v float64) {
	g.reg.update(g.name, g.labels, func(float64) float64 { return v })
}

type pushCounter struct {
	reg    *PushRegistry
	name   string
	labels prometheus.Labels
}

func (c *pushCounter) Inc() {
	c.Add(1)
}

func (c *pushCounter) Add(v float64) {
	if v < 0 {
		panic("counter cannot decrease in value")
	}
	c.reg.update(c.name, c.labels, func(old float64) float64 { return old + v })
}

type pushGaugeVec struct {
	reg    *PushRegistry
	name   string
	labels []string
}

func (v *pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{reg: v.reg, name: v.name, labels: checkLabels(v.name, v.labels, labels)}
}

type pushCounterVec struct {
	reg    *PushRegistry
	name   string
	labels []string
}

func (v *pushCounterVec) With(labels prometheus.Labels) Counter {
	return &pushCounter{reg: v.reg, name: v.name, labels: checkLabels(v.name, v.labels, labels)}
}

// checkLabels panics on a label set that does not match the declared
// names, as prometheus.GaugeVec.With does.
func checkLabels(name string, want []string, labels prometheus.Labels) prometheus.Labels {
	if len(labels) != len(want) {
		panic(fmt.Sprintf("metric %s: expected labels %v, got %v", name, want, labels))
	}
	for _, l := range want {
		if _, ok := labels[l]; !ok {
			panic(fmt.Sprintf("metric %s: missing label %q", name, l))
		}
	}
	return labels
}

// seriesKey identifies a series independently of label map order.
func seriesKey(name string, labels prometheus.Labels) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("," + k + "=" + labels[k])
	}
	return b.String()
}
