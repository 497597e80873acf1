package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/workflow"
)

type runFunc func(ctx context.Context, pc *workflow.Context, a *agent.Agent) *workflow.Result

// recoverFunc builds the result reported for an agent whose run panicked.
type recoverFunc func(a *agent.Agent, err error) *workflow.Result

// runConcurrently runs every agent in its own goroutine against pc and waits
// for all of them. results[i] always belongs to agents[i]. No goroutine is
// cancelled because a sibling failed. limit <= 0 means no limit.
func runConcurrently(ctx context.Context, pc *workflow.Context, agents []*agent.Agent, limit int, run runFunc, recovered recoverFunc) []*workflow.Result {
	results := make([]*workflow.Result, len(agents))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, a := range agents {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = recovered(a, panicError(rec))
				}
			}()
			results[i] = run(ctx, pc, a)
			return nil
		})
	}
	// Every goroutine returns nil.
	_ = g.Wait()

	return results
}

// panicResult builds the failed result for an agent whose run panicked and
// stores it in pc.
func panicResult(pc *workflow.Context, a *agent.Agent, err error) *workflow.Result {
	r := workflow.NewFailure(err.Error()).
		WithMetadata(workflow.MetaAgent, a.Name()).
		WithMetadata(workflow.MetaExceptionType, agent.TypeName(err))
	pc.SetResult(a.Name(), r)
	return r
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &agent.PanicError{Value: rec}
}

// ParallelGroup runs a fixed set of agents concurrently against one context
// without a full Orchestrator.
type ParallelGroup struct {
	name   string
	agents []*agent.Agent
	logger *slog.Logger
	run    runFunc
}

// NewParallelGroup creates a group. Results are returned in the order the
// agents are given here.
func NewParallelGroup(name string, agents ...*agent.Agent) *ParallelGroup {
	return &ParallelGroup{
		name:   name,
		agents: agents,
		logger: slog.Default().With("component", "parallel_group", "group", name),
		run: func(ctx context.Context, pc *workflow.Context, a *agent.Agent) *workflow.Result {
			return a.Run(ctx, pc)
		},
	}
}

// WithLogger sets the logger used to report recovered panics.
func (g *ParallelGroup) WithLogger(logger *slog.Logger) *ParallelGroup {
	g.logger = logger.With("component", "parallel_group", "group", g.name)
	return g
}

func (g *ParallelGroup) Name() string {
	return g.name
}

// Agents returns the group members in order.
func (g *ParallelGroup) Agents() []*agent.Agent {
	return append([]*agent.Agent(nil), g.agents...)
}

// RunAll runs every member concurrently and returns their results
// positionally. A member whose run panics is reported, and stored in pc, as
// a failed result carrying the panic message and exception type; siblings
// are unaffected.
func (g *ParallelGroup) RunAll(ctx context.Context, pc *workflow.Context) []*workflow.Result {
	g.logger.Debug("running parallel group", "agents", len(g.agents))

	return runConcurrently(ctx, pc, g.agents, 0, g.run, func(a *agent.Agent, err error) *workflow.Result {
		g.logger.Error("agent panicked in parallel group", "agent", a.Name(), "error", err)
		return panicResult(pc, a, err)
	})
}

// Execute runs the group and returns pc, so a group can be composed with
// other workflows.
func (g *ParallelGroup) Execute(ctx context.Context, pc *workflow.Context) *workflow.Context {
	g.RunAll(ctx, pc)
	return pc
}

func (g *ParallelGroup) String() string {
	return fmt.Sprintf("ParallelGroup(name=%q, agents=%d)", g.name, len(g.agents))
}
