package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/agentpipe/logging"
	"github.com/nomis52/agentpipe/workflow"
)

// Agent is a named pipeline step. Create with New.
type Agent struct {
	name    string
	handler Handler
	config  map[string]any
	logger  *slog.Logger
	metrics counters
}

// Option configures an Agent.
type Option func(*Agent)

// WithConfig sets the agent's configuration map.
func WithConfig(cfg map[string]any) Option {
	return func(a *Agent) {
		a.config = make(map[string]any, len(cfg))
		for k, v := range cfg {
			a.config[k] = v
		}
	}
}

// WithLogger sets the logger used when the run context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates an agent. The name keys the agent's result in the Context and
// must be unique within a pipeline.
func New(name string, handler Handler, opts ...Option) *Agent {
	a := &Agent{
		name:    name,
		handler: handler,
		config:  map[string]any{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.name
}

// Handler returns the wrapped handler.
func (a *Agent) Handler() Handler {
	return a.handler
}

func (a *Agent) String() string {
	return fmt.Sprintf("Agent(name=%q, handler=%T)", a.name, a.handler)
}

// Run executes the agent against pc and stores the result under the agent's
// name. It always returns a non-nil result.
func (a *Agent) Run(ctx context.Context, pc *workflow.Context) *workflow.Result {
	start := time.Now()
	logger := logging.FromContext(ctx, a.logger).With("agent", a.name)
	logger.DebugContext(ctx, "agent starting")

	result, inputErrs, err := a.phases(ctx, pc)
	elapsed := time.Since(start).Milliseconds()

	switch {
	case err != nil:
		logger.ErrorContext(ctx, "agent raised unexpected error",
			"error", err, "exception_type", TypeName(err), "elapsed_ms", elapsed)
		result = workflow.NewFailure("Unexpected error: "+err.Error()).
			WithMetadata(workflow.MetaAgent, a.name).
			WithMetadata(workflow.MetaExceptionType, TypeName(err)).
			WithMetadata(workflow.MetaStage, workflow.StageExecution)
		result.ExecutionTimeMs = elapsed

	case len(inputErrs) > 0:
		logger.WarnContext(ctx, "agent input validation failed", "errors", inputErrs)
		result = workflow.NewFailure(inputErrs...).
			WithMetadata(workflow.MetaAgent, a.name).
			WithMetadata(workflow.MetaStage, workflow.StageInputValidation)
		result.ExecutionTimeMs = 0

	default:
		result.ExecutionTimeMs = elapsed
		if _, ok := result.Metadata[workflow.MetaAgent]; !ok {
			result.WithMetadata(workflow.MetaAgent, a.name)
		}
		if result.Success {
			logger.InfoContext(ctx, "agent completed", "elapsed_ms", elapsed)
		} else {
			logger.ErrorContext(ctx, "agent completed with errors", "elapsed_ms", elapsed, "errors", result.Errors)
		}
	}

	a.metrics.record(result.ExecutionTimeMs, result.Success)
	pc.SetResult(a.name, result)
	return result
}

// phases runs the three handler calls. A panic in any of them is returned as
// err. inputErrs is non-empty only when input validation rejected the run.
func (a *Agent) phases(ctx context.Context, pc *workflow.Context) (result *workflow.Result, inputErrs []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, inputErrs, err = nil, nil, asError(rec)
		}
	}()

	if errs := a.handler.ValidateInput(ctx, pc); len(errs) > 0 {
		return nil, errs, nil
	}

	result, err = a.handler.Execute(ctx, pc)
	if err != nil {
		return nil, nil, err
	}
	if result == nil {
		return nil, nil, &NilResultError{Agent: a.name}
	}

	if errs := a.handler.ValidateOutput(ctx, result, pc); len(errs) > 0 {
		logging.FromContext(ctx, a.logger).WarnContext(ctx, "agent output validation failed",
			"agent", a.name, "errors", errs)
		result.Errors = append(result.Errors, errs...)
		result.Success = false
	}
	return result, nil, nil
}

// Metrics returns a snapshot of the cumulative counters.
func (a *Agent) Metrics() Metrics {
	return a.metrics.snapshot(a.name)
}

// ResetMetrics zeroes the counters.
func (a *Agent) ResetMetrics() {
	a.metrics.reset()
}
