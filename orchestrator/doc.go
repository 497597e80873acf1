// Package orchestrator composes agents into a pipeline.
//
// # Stages
//
// An Orchestrator has two kinds of stage:
//
//   - the sequential stage: agents run one at a time, in registration order,
//     each with exclusive access to the Context
//   - parallel groups: all members start together against the same Context
//     and the group ends when the last member returns
//
// The sequential stage always runs first, followed by the groups in the order
// they were added:
//
//	o := orchestrator.New("analysis", orchestrator.WithLogger(logger)).
//		AddSequential(parser).
//		AddSequential(planner).
//		AddParallelGroup(rules, llm)
//	pc = o.Execute(ctx, workflow.NewContext("", req))
//
// A stage that must run after a group belongs in a second orchestrator,
// chained with workflow.Compose.
//
// # Critical Failures
//
// After every sequential agent, and after each group joins (members checked
// in order), a CriticalPolicy decides whether the failure is fatal. The
// default treats failed input validation or parsing, and results flagged
// "critical", as fatal. A fatal result stops the pipeline: agents after it
// never run, and the Context holds exactly the prefix that did.
//
// A member of a group is never cancelled because a sibling failed.
//
// # Observability
//
// Each agent run gets a logger (optionally derived through a LoggerHook), a
// status.Line, an "agent.run" span and Prometheus series when the matching
// options are set. These are carried on the context.Context passed to the
// agent's handler:
//
//	logger := logging.FromContext(ctx, nil)
//	status.FromContext(ctx).Set("calling model")
//
// # Thread Safety
//
// Build the Orchestrator before the first Execute; after that it is read-only
// and Execute may be called concurrently for different requests. Agent
// metrics are shared across those calls.
package orchestrator
