package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/orchestrator"
	"github.com/nomis52/agentpipe/workflow"
)

// Agent names used by the pipeline.
const (
	AgentParser  = "parser"
	AgentPlanner = "planner"
	AgentRules   = "rules"
	AgentLLM     = "llm"
	AgentMerger  = "merger"
)

// ErrHalted is returned by Analyze when a critical failure stopped the run.
var ErrHalted = errors.New("analysis pipeline halted")

// Options configures NewPipeline.
type Options struct {
	Name        string
	Mode        Mode
	MaxFiles    int
	MaxFileSize int
	// Rules defaults to AssertionRules().
	Rules RuleEngine
	// LLM may be nil when Mode never runs the model.
	LLM LLMClient
	// AgentConfig holds per-agent config maps keyed by agent name. The parser
	// reads max_files and max_file_size overrides from its map.
	AgentConfig map[string]map[string]any
}

// Pipeline is the test-quality analysis workflow: parse and plan in
// sequence, rules and LLM in parallel, then a second orchestrator merges the
// findings.
type Pipeline struct {
	name     string
	analysis *orchestrator.Orchestrator
	merge    *orchestrator.Orchestrator
	flow     workflow.Workflow
}

// NewPipeline builds the pipeline. opts are applied to both orchestrators.
func NewPipeline(o Options, opts ...orchestrator.OrchestratorOption) *Pipeline {
	if o.Name == "" {
		o.Name = "analysis"
	}
	if o.Mode == "" {
		o.Mode = ModeRules
	}
	newAgent := func(name string, h agent.Handler) *agent.Agent {
		return agent.New(name, h, agent.WithConfig(o.AgentConfig[name]))
	}

	parser := &Parser{}
	parseAgent := newAgent(AgentParser, parser)
	parser.MaxFiles = parseAgent.ConfigInt("max_files", o.MaxFiles)
	parser.MaxFileSize = parseAgent.ConfigInt("max_file_size", o.MaxFileSize)

	analysis := orchestrator.New(o.Name, opts...).
		AddSequential(parseAgent).
		AddSequential(newAgent(AgentPlanner, &Planner{DefaultMode: o.Mode})).
		AddParallelGroup(
			newAgent(AgentRules, &RuleChecker{Engine: o.Rules}),
			newAgent(AgentLLM, &LLMReviewer{Client: o.LLM}),
		)
	merge := orchestrator.New(o.Name+"-merge", opts...).
		AddSequential(newAgent(AgentMerger, &Merger{}))

	return &Pipeline{
		name:     o.Name,
		analysis: analysis,
		merge:    merge,
		flow:     workflow.Compose(o.Name, analysis, merge),
	}
}

func (p *Pipeline) Name() string {
	return p.name
}

// Execute runs the whole pipeline on pc.
func (p *Pipeline) Execute(ctx context.Context, pc *workflow.Context) *workflow.Context {
	return p.flow.Execute(ctx, pc)
}

// Analyze runs req through a fresh context and returns the merged report.
// The context is returned even on error so callers can summarise it.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (Report, *workflow.Context, error) {
	pc := p.Execute(ctx, workflow.NewContext(workflow.NewRequestID(), &req))
	if by, halted := workflow.Halted(pc); halted {
		return Report{}, pc, fmt.Errorf("%w by %s: %v", ErrHalted, by, pc.AllErrors())
	}
	report, ok := ReportFrom(pc)
	if !ok {
		return Report{}, pc, errors.New("analysis produced no report")
	}
	return report, pc, nil
}

// Summary reports on a context produced by Execute or Analyze.
func (p *Pipeline) Summary(pc *workflow.Context) orchestrator.Summary {
	return p.analysis.Summary(pc)
}

// Agents returns every agent in execution order.
func (p *Pipeline) Agents() []*agent.Agent {
	return append(p.analysis.Agents(), p.merge.Agents()...)
}

// ResetAllMetrics clears the counters of every agent.
func (p *Pipeline) ResetAllMetrics() {
	p.analysis.ResetAllMetrics()
	p.merge.ResetAllMetrics()
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%s, %s)", p.analysis, p.merge)
}
