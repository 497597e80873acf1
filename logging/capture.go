package logging

import (
	"context"
	"log/slog"
)

// LoggerHook derives the logger an agent runs with. The orchestrator calls it
// once per agent run with its own base logger.
type LoggerHook interface {
	LoggerForAgent(base *slog.Logger, agent string) *slog.Logger
}

// CapturingLoggerHook tees every agent's records into a LogCollector.
type CapturingLoggerHook struct {
	collector *LogCollector
}

// NewCapturingLoggerHook creates a hook that captures into collector.
func NewCapturingLoggerHook(collector *LogCollector) *CapturingLoggerHook {
	return &CapturingLoggerHook{collector: collector}
}

// LoggerForAgent wraps base with a CapturingHandler for agent.
func (h *CapturingLoggerHook) LoggerForAgent(base *slog.Logger, agent string) *slog.Logger {
	return slog.New(NewCapturingHandler(base.Handler(), h.collector, agent))
}

// CapturingHandler records every log record into a LogCollector and then
// passes it to the wrapped handler.
type CapturingHandler struct {
	next      slog.Handler
	collector *LogCollector
	agent     string
	attrs     []slog.Attr
}

// NewCapturingHandler creates a handler capturing records for agent.
func NewCapturingHandler(next slog.Handler, collector *LogCollector, agent string) *CapturingHandler {
	return &CapturingHandler{
		next:      next,
		collector: collector,
		agent:     agent,
	}
}

// Enabled captures every level; the wrapped handler still filters its own output.
func (h *CapturingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle captures r and forwards it if the wrapped handler accepts its level.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		RequestID:  RequestIDFromContext(ctx),
		Attributes: make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, a := range h.attrs {
		entry.Attributes[a.Key] = attrValue(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attributes[a.Key] = attrValue(a.Value)
		return true
	})
	h.collector.Add(h.agent, entry)

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs must return a CapturingHandler so capture survives logger.With().
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CapturingHandler{
		next:      h.next.WithAttrs(attrs),
		collector: h.collector,
		agent:     h.agent,
		attrs:     merged,
	}
}

// WithGroup keeps captured attribute keys flat.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	return &CapturingHandler{
		next:      h.next.WithGroup(name),
		collector: h.collector,
		agent:     h.agent,
		attrs:     h.attrs,
	}
}

// attrValue converts v into something that encodes cleanly as JSON.
func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindGroup:
		group := make(map[string]any, len(v.Group()))
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}
