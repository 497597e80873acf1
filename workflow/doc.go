// Package workflow defines the data model shared by every agent pipeline.
//
// # Core Types
//
// A Context is created once per request and threaded by reference through the
// whole pipeline. It carries:
//   - the request id and opaque input payload (immutable after creation)
//   - named result slots, each owned by one agent but readable by all
//   - an execution plan scratch map for cross-agent coordination
//   - the Result of every agent that has run, keyed by agent name
//
// A Result is the standardized outcome of one agent run: success flag, opaque
// payload, ordered errors and warnings, metadata and timing.
//
// # Result Guarantees
//
// Every agent run stores exactly one Result under the agent's name. A repeated
// run overwrites the earlier entry; entries are never removed, so the result
// map only grows during a pipeline run. After a pipeline stops early the map
// holds the prefix of agents that actually ran.
//
// # Concurrency
//
// Agents in a parallel group share the same Context. All accessors are safe to
// call from concurrent goroutines, but the framework does not arbitrate between
// agents writing the same slot or plan key:
//
//	// GOOD: each parallel agent owns its slot
//	pc.SetSlot("rule_issues", issues)
//	pc.SetSlot("llm_issues", issues)
//
//	// BAD: two parallel agents racing on the same key
//	pc.SetPlan("counter", n+1)
//
// # Composition
//
// Workflows can be chained with Compose. The composed workflow stops after the
// first workflow that halted the pipeline (see Halted).
package workflow
