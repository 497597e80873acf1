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

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint (e.g., "http://localhost:8428").
	URL string
	// Prefix is prepended to every metric name, followed by an underscore.
	Prefix string
	// Job is the job label for all metrics.
	Job string
	// Instance is the instance label for all metrics.
	Instance string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// PushRegistry implements Registry for push-based metrics collection.
//
// Updates are only recorded in memory. Flush sends the current value of every
// series in a single remote write request. Counters keep their cumulative
// value across flushes.
type PushRegistry struct {
	cfg        PushConfig
	url        string
	httpClient *http.Client

	mu     sync.Mutex
	series map[string]*sample
}

type sample struct {
	name   string
	labels map[string]string
	value  float64
	at     time.Time
}

// NewPushRegistry creates a new PushRegistry that pushes metrics to cfg.URL.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &PushRegistry{
		cfg:        cfg,
		url:        strings.TrimSuffix(cfg.URL, "/") + "/api/v1/write",
		httpClient: &http.Client{Timeout: cfg.Timeout},
		series:     make(map[string]*sample),
	}
}

func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return &pushGauge{reg: r, name: opts.Name}, nil
}

func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return pushGaugeVec{&pushVec{reg: r, name: opts.Name, labels: labels}}, nil
}

func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return &pushCounter{reg: r, name: opts.Name}, nil
}

func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return pushCounterVec{&pushVec{reg: r, name: opts.Name, labels: labels}}, nil
}

// Pending returns the number of series that will be sent by Flush.
func (r *PushRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

// Flush sends every recorded series to the remote write endpoint. It is a
// no-op when nothing has been recorded.
func (r *PushRegistry) Flush(ctx context.Context) error {
	r.mu.Lock()
	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	timeseries := make([]prompb.TimeSeries, 0, len(keys))
	for _, k := range keys {
		timeseries = append(timeseries, r.toTimeSeries(r.series[k]))
	}
	r.mu.Unlock()

	if len(timeseries) == 0 {
		return nil
	}

	data, err := proto.Marshal(&prompb.WriteRequest{Timeseries: timeseries})
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(snappy.Encode(nil, data)))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.httpClient.Do(req)
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

// update applies f to the current value of a series and stores the result.
func (r *PushRegistry) update(name string, labels map[string]string, f func(float64) float64) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.series[key]
	if !ok {
		s = &sample{name: name, labels: labels}
		r.series[key] = s
	}
	s.value = f(s.value)
	s.at = time.Now()
}

// toTimeSeries must be called with mu held.
func (r *PushRegistry) toTimeSeries(s *sample) prompb.TimeSeries {
	name := s.name
	if r.cfg.Prefix != "" {
		name = r.cfg.Prefix + "_" + name
	}

	labels := []prompb.Label{{Name: "__name__", Value: name}}
	if r.cfg.Job != "" {
		labels = append(labels, prompb.Label{Name: "job", Value: r.cfg.Job})
	}
	if r.cfg.Instance != "" {
		labels = append(labels, prompb.Label{Name: "instance", Value: r.cfg.Instance})
	}
	for _, k := range sortedKeys(s.labels) {
		labels = append(labels, prompb.Label{Name: k, Value: s.labels[k]})
	}

	return prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: s.value, Timestamp: s.at.UnixMilli()}},
	}
}

type pushGauge struct {
	reg    *PushRegistry
	name   string
	labels map[string]string
}

func (g *pushGauge) Set(v float64) {
	g.reg.update(g.name, g.labels, func(float64) float64 { return v })
}

type pushCounter struct {
	reg    *PushRegistry
	name   string
	labels map[string]string
}

func (c *pushCounter) Inc() {
	c.Add(1)
}

func (c *pushCounter) Add(v float64) {
	if v < 0 {
		panic("counter cannot decrease in value")
	}
	c.reg.update(c.name, c.labels, func(cur float64) float64 { return cur + v })
}

// pushVec serves both GaugeVec and CounterVec; series state lives in the registry.
type pushVec struct {
	reg    *PushRegistry
	name   string
	labels []string
}

func (v *pushVec) labelSet(labels prometheus.Labels) map[string]string {
	out := make(map[string]string, len(labels))
	for k, val := range labels {
		out[k] = val
	}
	return out
}

// pushGaugeVec and pushCounterVec give pushVec the two With signatures.
type pushGaugeVec struct{ *pushVec }

type pushCounterVec struct{ *pushVec }

func (v pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return &pushGauge{reg: v.reg, name: v.name, labels: v.labelSet(labels)}
}

func (v pushCounterVec) With(labels prometheus.Labels) Counter {
	return &pushCounter{reg: v.reg, name: v.name, labels: v.labelSet(labels)}
}

func seriesKey(name string, labels map[string]string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, k := range sortedKeys(labels) {
		b.WriteString(",")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
