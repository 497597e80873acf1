package orchestrator

import (
	"github.com/nomis52/agentpipe/workflow"
)

// Summary is a serialisable report of one pipeline run.
type Summary struct {
	Orchestrator         string                              `json:"orchestrator_name"`
	RequestID            string                              `json:"request_id"`
	TotalExecutionTimeMs int64                               `json:"total_execution_time_ms"`
	AgentExecutionTimeMs int64                               `json:"agent_execution_time_ms"`
	TotalAgents          int                                 `json:"total_agents"`
	SuccessfulAgents     int                                 `json:"successful_agents"`
	FailedAgents         int                                 `json:"failed_agents"`
	TotalErrors          int                                 `json:"total_errors"`
	TotalWarnings        int                                 `json:"total_warnings"`
	Errors               []string                            `json:"errors"`
	Warnings             []string                            `json:"warnings"`
	AgentMetrics         map[string]workflow.AgentRunMetrics `json:"agent_metrics"`
	HaltedBy             string                              `json:"halted_by,omitempty"`
	HaltReason           string                              `json:"halt_reason,omitempty"`
}

// Summary reports on pc after Execute. TotalAgents counts the agents that ran,
// which is fewer than the registered agents when the pipeline stopped early.
// TotalExecutionTimeMs is measured from the context's creation.
func (o *Orchestrator) Summary(pc *workflow.Context) Summary {
	results := pc.Results()

	s := Summary{
		Orchestrator:         o.name,
		RequestID:            pc.RequestID(),
		TotalExecutionTimeMs: pc.TotalExecutionTime().Milliseconds(),
		TotalAgents:          len(results),
		Errors:               pc.AllErrors(),
		Warnings:             pc.AllWarnings(),
		AgentMetrics:         pc.AgentMetrics(),
	}
	for _, r := range results {
		s.AgentExecutionTimeMs += r.ExecutionTimeMs
		if r.Success {
			s.SuccessfulAgents++
		} else {
			s.FailedAgents++
		}
	}
	s.TotalErrors = len(s.Errors)
	s.TotalWarnings = len(s.Warnings)

	if by, ok := workflow.Halted(pc); ok {
		s.HaltedBy = by
		if reason, ok := pc.Plan(workflow.PlanHaltReason); ok {
			s.HaltReason, _ = reason.(string)
		}
	}
	return s
}
