package workflow

import (
	"context"
)

// Workflow represents an executable pipeline over a shared Context.
// The orchestrator is the main implementation.
type Workflow interface {
	// Name identifies the workflow in logs and summaries.
	Name() string

	// Execute runs the workflow and returns the same context it was given.
	// Agent failures are recorded in the context, never returned.
	Execute(ctx context.Context, pc *Context) *Context
}

// Halted returns the name of the agent that stopped the pipeline, if any.
func Halted(pc *Context) (string, bool) {
	v, ok := pc.Plan(PlanHaltedBy)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

// Compose creates a workflow that executes multiple workflows in sequence on
// the same context. Execution stops after a workflow that halted the pipeline;
// the remaining workflows are not run.
func Compose(name string, workflows ...Workflow) Workflow {
	return &compositeWorkflow{
		name:      name,
		workflows: workflows,
	}
}

// compositeWorkflow executes multiple workflows in sequence.
type compositeWorkflow struct {
	name      string
	workflows []Workflow
}

func (c *compositeWorkflow) Name() string {
	return c.name
}

// Execute runs each workflow in order until one halts.
func (c *compositeWorkflow) Execute(ctx context.Context, pc *Context) *Context {
	for _, w := range c.workflows {
		w.Execute(ctx, pc)
		if _, halted := Halted(pc); halted {
			break
		}
	}
	return pc
}
