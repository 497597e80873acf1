package status

import (
	"sync"
)

// Handler stores the latest status message of each agent.
type Handler struct {
	mu       sync.RWMutex
	statuses map[string]string
}

// NewHandler creates an empty handler.
func NewHandler() *Handler {
	return &Handler{
		statuses: make(map[string]string),
	}
}

// Set records the status of agent.
func (h *Handler) Set(agent, status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[agent] = status
}

// Get returns the status of agent, or "".
func (h *Handler) Get(agent string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statuses[agent]
}

// All returns a copy of every agent's status.
func (h *Handler) All() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]string, len(h.statuses))
	for k, v := range h.statuses {
		out[k] = v
	}
	return out
}

// Clear forgets all statuses.
func (h *Handler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = make(map[string]string)
}
