package workflow

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Execution plan keys written by the orchestrator when it stops a pipeline early.
const (
	// PlanHaltedBy holds the name of the agent whose failure stopped the
	// pipeline, or the orchestrator name when the caller cancelled it.
	PlanHaltedBy = "halted_by"
	// PlanHaltReason holds HaltCritical or HaltCancelled.
	PlanHaltReason = "halt_reason"
)

// Values stored under PlanHaltReason.
const (
	HaltCritical  = "critical_failure"
	HaltCancelled = "cancelled"
)

// Context is the shared state threaded through one pipeline run.
//
// It is created once by the caller, passed by reference to every agent, and
// returned by the orchestrator carrying every agent's result. The orchestrator
// never copies or discards it.
//
// OWNERSHIP:
// - Sequential agents have exclusive access to the whole context
// - Agents in a parallel group must only write slots and plan keys they own
//
// The internal lock keeps concurrent writers from corrupting the maps. It does
// not arbitrate between two agents writing the same slot; that is a caller error.
type Context struct {
	requestID string
	input     any
	createdAt time.Time

	mu      sync.RWMutex
	slots   map[string]any
	plan    map[string]any
	results map[string]*Result
}

// NewContext creates a context for one request. If requestID is empty a new
// one is generated.
func NewContext(requestID string, input any) *Context {
	if requestID == "" {
		requestID = NewRequestID()
	}
	return &Context{
		requestID: requestID,
		input:     input,
		createdAt: time.Now(),
		slots:     make(map[string]any),
		plan:      make(map[string]any),
		results:   make(map[string]*Result),
	}
}

// NewRequestID returns a random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// RequestID returns the request identifier.
func (c *Context) RequestID() string {
	return c.requestID
}

// Input returns the request payload.
func (c *Context) Input() any {
	return c.input
}

// CreatedAt returns the context creation time.
func (c *Context) CreatedAt() time.Time {
	return c.createdAt
}

// SetSlot stores a named result owned by the calling agent.
func (c *Context) SetSlot(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[name] = value
}

// Slot returns a named result.
func (c *Context) Slot(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.slots[name]
	return v, ok
}

// SetPlan writes a key of the execution plan scratch map.
func (c *Context) SetPlan(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plan[key] = value
}

// Plan reads a key of the execution plan scratch map.
func (c *Context) Plan(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.plan[key]
	return v, ok
}

// PlanSnapshot returns a copy of the execution plan.
func (c *Context) PlanSnapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	plan := make(map[string]any, len(c.plan))
	for k, v := range c.plan {
		plan[k] = v
	}
	return plan
}

// SetResult records the result of an agent run, replacing any earlier result
// for the same agent.
func (c *Context) SetResult(agent string, result *Result) {
	if result == nil {
		return
	}
	result.normalize()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[agent] = result
}

// Result returns the stored result for an agent.
func (c *Context) Result(agent string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[agent]
	return r, ok
}

// Results returns a copy of all stored results keyed by agent name.
func (c *Context) Results() map[string]*Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	results := make(map[string]*Result, len(c.results))
	for name, r := range c.results {
		results[name] = r
	}
	return results
}

// ResultCount returns the number of agents that have a stored result.
func (c *Context) ResultCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// TotalExecutionTime returns the wall time elapsed since the context was created.
func (c *Context) TotalExecutionTime() time.Duration {
	return time.Since(c.createdAt)
}

// HasErrors reports whether any agent failed or reported errors.
func (c *Context) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.results {
		if !r.Success || len(r.Errors) > 0 {
			return true
		}
	}
	return false
}

// AllErrors returns every agent error prefixed with "[agent] ".
// Agents are visited in name order.
func (c *Context) AllErrors() []string {
	return c.collect(func(r *Result) []string { return r.Errors })
}

// AllWarnings returns every agent warning prefixed with "[agent] ".
// Agents are visited in name order.
func (c *Context) AllWarnings() []string {
	return c.collect(func(r *Result) []string { return r.Warnings })
}

func (c *Context) collect(pick func(*Result) []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []string{}
	for _, name := range c.sortedNames() {
		for _, msg := range pick(c.results[name]) {
			out = append(out, fmt.Sprintf("[%s] %s", name, msg))
		}
	}
	return out
}

// AgentRunMetrics summarises one stored result.
type AgentRunMetrics struct {
	Success         bool  `json:"success"`
	ExecutionTimeMs int64 `json:"execution_time_ms"`
	ErrorCount      int   `json:"error_count"`
	WarningCount    int   `json:"warning_count"`
}

// AgentMetrics returns per-agent run metrics derived from the stored results.
func (c *Context) AgentMetrics() map[string]AgentRunMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := make(map[string]AgentRunMetrics, len(c.results))
	for name, r := range c.results {
		m[name] = AgentRunMetrics{
			Success:         r.Success,
			ExecutionTimeMs: r.ExecutionTimeMs,
			ErrorCount:      len(r.Errors),
			WarningCount:    len(r.Warnings),
		}
	}
	return m
}

// sortedNames must be called with mu held.
func (c *Context) sortedNames() []string {
	names := make([]string, 0, len(c.results))
	for name := range c.results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
