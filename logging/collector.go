package logging

import (
	"sort"
	"sync"
	"time"
)

// LogEntry is one captured log record.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	RequestID  string         `json:"request_id,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// LogCollector stores captured records grouped by agent name.
// Safe for concurrent use; parallel agents log into the same collector.
type LogCollector struct {
	mu   sync.RWMutex
	logs map[string][]LogEntry
}

// NewLogCollector creates an empty collector.
func NewLogCollector() *LogCollector {
	return &LogCollector{
		logs: make(map[string][]LogEntry),
	}
}

// Add appends an entry for agent.
func (c *LogCollector) Add(agent string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs[agent] = append(c.logs[agent], entry)
}

// Logs returns a copy of the entries captured for agent, or nil.
func (c *LogCollector) Logs(agent string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, ok := c.logs[agent]
	if !ok {
		return nil
	}
	out := make([]LogEntry, len(logs))
	copy(out, logs)
	return out
}

// ForRequest returns the entries of agent that were logged during requestID.
func (c *LogCollector) ForRequest(agent, requestID string) []LogEntry {
	var out []LogEntry
	for _, e := range c.Logs(agent) {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out
}

// Agents returns the names of all agents with captured logs, sorted.
func (c *LogCollector) Agents() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.logs))
	for name := range c.logs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of every captured entry grouped by agent.
func (c *LogCollector) All() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]LogEntry, len(c.logs))
	for agent, logs := range c.logs {
		cp := make([]LogEntry, len(logs))
		copy(cp, logs)
		out[agent] = cp
	}
	return out
}

// Clear drops everything captured so far.
func (c *LogCollector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = make(map[string][]LogEntry)
}
