// Package metrics provides Prometheus-compatible metrics for pipeline runs.
//
// The package supports two modes of operation:
//   - Scrape mode (long-running processes): metrics are registered with a
//     Prometheus registry and exposed via HTTP
//   - Push mode (CLI runs): samples are buffered and sent in one remote write
//     request to VictoriaMetrics/Prometheus when Flush is called
//
// Code that records metrics only depends on Registry; NopRegistry is used
// when monitoring is not configured.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge is a metric that represents a single numerical value that can go up and down.
type Gauge interface {
	Set(float64)
}

// Counter is a metric that represents a single monotonically increasing counter.
type Counter interface {
	Inc()
	// Add panics if the value is negative.
	Add(float64)
}

// GaugeVec is a Gauge with labels.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
}

// CounterVec is a Counter with labels.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates and registers metrics.
// Implementations handle the differences between push and scrape modes.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounter(opts prometheus.CounterOpts) (Counter, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}
