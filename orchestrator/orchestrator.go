package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/logging"
	"github.com/nomis52/agentpipe/status"
	"github.com/nomis52/agentpipe/workflow"
)

// Orchestrator runs agents as an ordered sequential stage followed by
// parallel groups. Build it with New, AddSequential and AddParallelGroup,
// then call Execute once per request.
type Orchestrator struct {
	name   string
	logger *slog.Logger

	sequential []*agent.Agent
	groups     [][]*agent.Agent

	critical    CriticalPolicy
	logHook     logging.LoggerHook
	statuses    *status.Handler
	instruments *Instruments
	tracer      trace.Tracer
	maxParallel int
}

// OrchestratorOption is a function that configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLogger sets a custom logger for the orchestrator
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "orchestrator", "orchestrator", o.name)
	}
}

// WithCriticalPolicy replaces DefaultCriticalPolicy.
func WithCriticalPolicy(p CriticalPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.critical = p
	}
}

// WithLogHook derives each agent's logger through hook, e.g. to capture the
// logs of every run.
func WithLogHook(hook logging.LoggerHook) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logHook = hook
	}
}

// WithStatusHandler publishes each agent's progress to h.
func WithStatusHandler(h *status.Handler) OrchestratorOption {
	return func(o *Orchestrator) {
		o.statuses = h
	}
}

// WithInstruments records Prometheus metrics for every agent run.
func WithInstruments(in *Instruments) OrchestratorOption {
	return func(o *Orchestrator) {
		o.instruments = in
	}
}

// WithTracer records a span per pipeline run and per agent run.
func WithTracer(t trace.Tracer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// WithMaxParallel caps the number of group members running at once.
// n <= 0 means no cap.
func WithMaxParallel(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxParallel = n
	}
}

// New creates an orchestrator with no agents.
func New(name string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		name:     name,
		critical: DefaultCriticalPolicy,
		tracer:   noop.NewTracerProvider().Tracer("agentpipe"),
	}
	o.logger = slog.Default().With("component", "orchestrator", "orchestrator", name)

	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the orchestrator name.
func (o *Orchestrator) Name() string {
	return o.name
}

// AddSequential appends an agent to the sequential stage.
func (o *Orchestrator) AddSequential(a *agent.Agent) *Orchestrator {
	o.sequential = append(o.sequential, a)
	return o
}

// AddParallelGroup appends a group whose members run concurrently. Groups
// run in the order they are added, after the sequential stage.
func (o *Orchestrator) AddParallelGroup(agents ...*agent.Agent) *Orchestrator {
	o.groups = append(o.groups, append([]*agent.Agent(nil), agents...))
	return o
}

// Agents returns every registered agent: the sequential stage in order, then
// each group's members in order.
func (o *Orchestrator) Agents() []*agent.Agent {
	all := append([]*agent.Agent(nil), o.sequential...)
	for _, g := range o.groups {
		all = append(all, g...)
	}
	return all
}

// ResetAllMetrics resets the metrics of every registered agent.
func (o *Orchestrator) ResetAllMetrics() {
	for _, a := range o.Agents() {
		a.ResetMetrics()
	}
	o.logger.Debug("agent metrics reset", "agents", len(o.Agents()))
}

func (o *Orchestrator) String() string {
	names := make([]string, 0, len(o.groups))
	for _, g := range o.groups {
		members := make([]string, len(g))
		for i, a := range g {
			members[i] = a.Name()
		}
		names = append(names, "["+strings.Join(members, ",")+"]")
	}
	seq := make([]string, len(o.sequential))
	for i, a := range o.sequential {
		seq[i] = a.Name()
	}
	return fmt.Sprintf("Orchestrator(name=%q, sequential=[%s], parallel=%s)",
		o.name, strings.Join(seq, ","), strings.Join(names, ""))
}

// Execute runs the pipeline against pc and returns pc.
//
// Sequential agents run one at a time in registration order. Then each
// parallel group runs with all members started concurrently; the group
// finishes only when every member has finished. After each sequential agent,
// and after each group in member order, the critical policy is consulted and
// the pipeline stops at the first critical failure. Agents after the stop
// point never run and have no result in pc.
//
// If ctx is done before a stage starts the pipeline also stops. Running
// agents are not interrupted; handlers should watch ctx themselves.
//
// When the pipeline stops early the plan records PlanHaltedBy and
// PlanHaltReason.
func (o *Orchestrator) Execute(ctx context.Context, pc *workflow.Context) *workflow.Context {
	ctx, span := o.tracer.Start(ctx, "pipeline.execute", trace.WithAttributes(
		attribute.String("pipeline.orchestrator", o.name),
		attribute.String("pipeline.request_id", pc.RequestID()),
	))
	defer span.End()

	logger := o.logger.With("request_id", pc.RequestID())
	start := time.Now()
	logger.Info("pipeline starting", "sequential", len(o.sequential), "parallel_groups", len(o.groups))

	for _, a := range o.sequential {
		if o.stopOnCancel(ctx, pc, logger, span) {
			return pc
		}
		r := o.safeRun(ctx, pc, a)
		if o.isCritical(r, a) {
			o.halt(pc, logger, span, a.Name(), workflow.HaltCritical, r)
			return pc
		}
	}

	for i, group := range o.groups {
		if o.stopOnCancel(ctx, pc, logger, span) {
			return pc
		}
		logger.Debug("running parallel group", "group", i, "agents", len(group))
		results := runConcurrently(ctx, pc, group, o.maxParallel, o.runAgent, func(a *agent.Agent, err error) *workflow.Result {
			return o.recovered(pc, logger, a, err)
		})
		for j, r := range results {
			if o.isCritical(r, group[j]) {
				o.halt(pc, logger, span, group[j].Name(), workflow.HaltCritical, r)
				return pc
			}
		}
	}

	span.SetAttributes(attribute.Int("pipeline.agents_run", pc.ResultCount()))
	logger.Info("pipeline completed",
		"agents_run", pc.ResultCount(),
		"has_errors", pc.HasErrors(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return pc
}

// isCritical evaluates the policy. A missing result counts as critical.
func (o *Orchestrator) isCritical(r *workflow.Result, a *agent.Agent) bool {
	if r == nil {
		return true
	}
	return o.critical(r, a)
}

func (o *Orchestrator) stopOnCancel(ctx context.Context, pc *workflow.Context, logger *slog.Logger, span trace.Span) bool {
	if ctx.Err() == nil {
		return false
	}
	o.halt(pc, logger, span, o.name, workflow.HaltCancelled, nil)
	return true
}

func (o *Orchestrator) halt(pc *workflow.Context, logger *slog.Logger, span trace.Span, by, reason string, r *workflow.Result) {
	pc.SetPlan(workflow.PlanHaltedBy, by)
	pc.SetPlan(workflow.PlanHaltReason, reason)
	o.instruments.halted(o.name, reason)

	span.SetAttributes(
		attribute.String("pipeline.halted_by", by),
		attribute.String("pipeline.halt_reason", reason),
	)
	span.SetStatus(codes.Error, reason)

	if r != nil {
		logger.Error("pipeline stopped by critical failure", "agent", by, "errors", r.Errors, "stage", r.Stage())
	} else {
		logger.Warn("pipeline stopped", "reason", reason)
	}
}

// safeRun runs a sequential agent, converting a panic that escapes the run
// machinery into a failed result.
func (o *Orchestrator) safeRun(ctx context.Context, pc *workflow.Context, a *agent.Agent) (r *workflow.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r = o.recovered(pc, o.logger, a, panicError(rec))
		}
	}()
	return o.runAgent(ctx, pc, a)
}

// recovered builds and stores the result for an agent whose run panicked.
func (o *Orchestrator) recovered(pc *workflow.Context, logger *slog.Logger, a *agent.Agent, err error) *workflow.Result {
	logger.Error("agent run panicked", "agent", a.Name(), "error", err)
	r := panicResult(pc, a, err)
	o.instruments.observe(o.name, a.Name(), r)
	return r
}

// runAgent runs a with the per-run logger, status line and span attached to ctx.
func (o *Orchestrator) runAgent(ctx context.Context, pc *workflow.Context, a *agent.Agent) *workflow.Result {
	ctx, span := o.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.name", a.Name()),
		attribute.String("pipeline.orchestrator", o.name),
	))
	defer span.End()

	logger := o.logger.With("request_id", pc.RequestID())
	if o.logHook != nil {
		logger = o.logHook.LoggerForAgent(logger, a.Name())
	}
	line := status.NewLine(a.Name(), logger, o.statuses)

	ctx = logging.WithContext(ctx, logger)
	ctx = logging.WithRequestID(ctx, pc.RequestID())
	ctx = status.WithContext(ctx, line)

	if o.statuses != nil {
		line.Set("running")
	}

	r := a.Run(ctx, pc)
	o.instruments.observe(o.name, a.Name(), r)

	span.SetAttributes(
		attribute.Bool("agent.success", r.Success),
		attribute.Int64("agent.execution_time_ms", r.ExecutionTimeMs),
		attribute.Int("agent.errors", len(r.Errors)),
		attribute.Int("agent.warnings", len(r.Warnings)),
	)
	if !r.Success {
		span.SetStatus(codes.Error, strings.Join(r.Errors, "; "))
	}

	if o.statuses != nil {
		if r.Success {
			line.Set(fmt.Sprintf("✅ completed in %dms", r.ExecutionTimeMs))
		} else {
			line.Set("❌ " + strings.Join(r.Errors, "; "))
		}
	}
	return r
}
