package agent

import (
	"math"
	"sync"
)

// Metrics is a snapshot of an agent's cumulative counters.
type Metrics struct {
	Name                   string  `json:"agent_name"`
	TotalExecutions        int64   `json:"total_executions"`
	TotalErrors            int64   `json:"total_errors"`
	SuccessRate            float64 `json:"success_rate"`
	AverageExecutionTimeMs int64   `json:"average_execution_time_ms"`
	TotalExecutionTimeMs   int64   `json:"total_execution_time_ms"`
}

type counters struct {
	mu          sync.Mutex
	executions  int64
	errors      int64
	totalTimeMs int64
}

func (c *counters) record(elapsedMs int64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executions++
	c.totalTimeMs += elapsedMs
	if !success {
		c.errors++
	}
}

func (c *counters) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executions, c.errors, c.totalTimeMs = 0, 0, 0
}

func (c *counters) snapshot(name string) Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{
		Name:                 name,
		TotalExecutions:      c.executions,
		TotalErrors:          c.errors,
		TotalExecutionTimeMs: c.totalTimeMs,
	}
	if c.executions > 0 {
		m.SuccessRate = float64(c.executions-c.errors) / float64(c.executions)
		m.AverageExecutionTimeMs = int64(math.RoundToEven(float64(c.totalTimeMs) / float64(c.executions)))
	}
	return m
}
