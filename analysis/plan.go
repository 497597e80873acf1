package analysis

import (
	"context"
	"fmt"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/workflow"
)

// Planner decides which analysers run and records the decision in the
// execution plan. The request's Mode wins over DefaultMode. An unknown mode
// is a critical failure.
type Planner struct {
	agent.NoValidation
	DefaultMode Mode
}

func (p *Planner) Execute(_ context.Context, pc *workflow.Context) (*workflow.Result, error) {
	mode := p.DefaultMode
	if req, ok := RequestFrom(pc); ok && req.Mode != "" {
		mode = req.Mode
	}
	m, err := ParseMode(string(mode))
	if err != nil {
		return workflow.NewFailure(err.Error()).WithMetadata(workflow.MetaCritical, true), nil
	}

	pc.SetPlan(PlanMode, m)
	pc.SetPlan(PlanRunRule, m.RunsRules())
	pc.SetPlan(PlanRunLLM, m.RunsLLM())

	return workflow.NewSuccess(map[string]any{
		PlanMode:    m,
		PlanRunRule: m.RunsRules(),
		PlanRunLLM:  m.RunsLLM(),
	}).WithMetadata("summary", fmt.Sprintf("mode=%s", m)), nil
}

// planFlag reads a boolean plan key. Missing keys read as def.
func planFlag(pc *workflow.Context, key string, def bool) bool {
	v, ok := pc.Plan(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
