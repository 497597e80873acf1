package orchestrator

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/agentpipe/metrics"
	"github.com/nomis52/agentpipe/workflow"
)

// Instruments holds the Prometheus metrics recorded for pipeline runs.
// Create one per Registry and share it between orchestrators; series are
// labelled with the orchestrator name.
type Instruments struct {
	executions metrics.CounterVec
	errors     metrics.CounterVec
	duration   metrics.GaugeVec
	halts      metrics.CounterVec
}

// NewInstruments registers the pipeline metrics with reg.
func NewInstruments(reg metrics.Registry) (*Instruments, error) {
	agentLabels := []string{"agent", "orchestrator"}

	executions, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_executions_total",
		Help: "Number of agent runs.",
	}, agentLabels)
	if err != nil {
		return nil, fmt.Errorf("creating executions counter: %w", err)
	}

	errs, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_errors_total",
		Help: "Number of agent runs that ended in failure.",
	}, agentLabels)
	if err != nil {
		return nil, fmt.Errorf("creating errors counter: %w", err)
	}

	duration, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "agent_execution_time_ms",
		Help: "Wall time of the most recent agent run in milliseconds.",
	}, agentLabels)
	if err != nil {
		return nil, fmt.Errorf("creating execution time gauge: %w", err)
	}

	halts, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_halts_total",
		Help: "Number of pipeline runs stopped early.",
	}, []string{"orchestrator", "reason"})
	if err != nil {
		return nil, fmt.Errorf("creating halts counter: %w", err)
	}

	return &Instruments{
		executions: executions,
		errors:     errs,
		duration:   duration,
		halts:      halts,
	}, nil
}

func (in *Instruments) observe(orchestrator, agentName string, r *workflow.Result) {
	if in == nil {
		return
	}
	labels := prometheus.Labels{"agent": agentName, "orchestrator": orchestrator}
	in.executions.With(labels).Inc()
	if !r.Success {
		in.errors.With(labels).Inc()
	}
	in.duration.With(labels).Set(float64(r.ExecutionTimeMs))
}

func (in *Instruments) halted(orchestrator, reason string) {
	if in == nil {
		return
	}
	in.halts.With(prometheus.Labels{"orchestrator": orchestrator, "reason": reason}).Inc()
}
