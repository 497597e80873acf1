package status

import (
	"context"
	"log/slog"
)

// Line logs status messages for one agent and mirrors them into a Handler.
// A nil *Line is valid and discards everything.
type Line struct {
	logger  *slog.Logger
	handler *Handler
	agent   string
}

// NewLine creates a line bound to agent. handler may be nil, in which case
// messages are only logged.
func NewLine(agent string, logger *slog.Logger, handler *Handler) *Line {
	return &Line{
		logger:  logger,
		handler: handler,
		agent:   agent,
	}
}

// Set logs status and stores it as the agent's current status.
func (l *Line) Set(status string) {
	if l == nil {
		return
	}
	if l.logger != nil {
		l.logger.Info(status, "agent", l.agent)
	}
	if l.handler != nil {
		l.handler.Set(l.agent, status)
	}
}

// Agent returns the agent name the line is bound to.
func (l *Line) Agent() string {
	if l == nil {
		return ""
	}
	return l.agent
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *Line) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the line carried by ctx. If there is none it returns a
// nil *Line, whose Set is a no-op.
func FromContext(ctx context.Context) *Line {
	l, _ := ctx.Value(ctxKey{}).(*Line)
	return l
}

// CaptureError runs f and, if it fails, sets the status to the error message
// prefixed with ❌.
func CaptureError(l *Line, f func() error) error {
	err := f()
	if err != nil {
		l.Set("❌ " + err.Error())
	}
	return err
}
