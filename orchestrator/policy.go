package orchestrator

import (
	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/workflow"
)

// CriticalPolicy decides whether a result stops the pipeline.
type CriticalPolicy func(r *workflow.Result, a *agent.Agent) bool

// DefaultCriticalPolicy treats a failure as critical when it happened while
// validating input or parsing, or when the result is explicitly flagged with
// metadata "critical": true. Every other failure lets the pipeline continue.
func DefaultCriticalPolicy(r *workflow.Result, _ *agent.Agent) bool {
	if r.Success {
		return false
	}
	switch r.Stage() {
	case workflow.StageInputValidation, workflow.StageParsing:
		return true
	}
	return r.IsCriticalFlagged()
}
