// Package agent wraps one pipeline step with uniform validation, error
// containment, timing and metrics.
//
// # Run
//
// Agent.Run executes a fixed sequence that handlers cannot override:
//
//  1. ValidateInput. A non-empty list fails the run at stage
//     "input_validation" with execution time 0; Execute is not called.
//  2. Execute.
//  3. ValidateOutput. Messages are appended to the result's errors and the
//     result is forced to failure. Data already produced is kept.
//  4. The execution time is overwritten with the measured wall time.
//  5. Metrics are updated and the result is stored in the Context under the
//     agent's name.
//
// An error returned by Execute, or a panic in any of the three handler calls,
// becomes a failed result with the message "Unexpected error: <msg>", the
// error's Go type name under "exception_type" and stage "execution". Run never
// panics and never returns nil.
//
// # Handlers
//
// Most handlers only implement Execute and embed NoValidation:
//
//	type Parser struct {
//	    agent.NoValidation
//	}
//
//	func (p *Parser) Execute(ctx context.Context, pc *workflow.Context) (*workflow.Result, error) {
//	    ...
//	}
//
// HandlerFunc adapts a plain function.
//
// # Metrics
//
// An Agent is usually long-lived and reused across requests, so its counters
// accumulate until ResetMetrics is called. They are guarded by a mutex and
// safe to read while runs are in flight.
package agent
