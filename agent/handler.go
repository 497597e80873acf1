package agent

import (
	"context"

	"github.com/nomis52/agentpipe/workflow"
)

// Handler implements the behaviour of one agent.
//
// ValidateInput and ValidateOutput must not mutate pc. They return an empty
// (or nil) list when the check passes.
type Handler interface {
	ValidateInput(ctx context.Context, pc *workflow.Context) []string
	Execute(ctx context.Context, pc *workflow.Context) (*workflow.Result, error)
	ValidateOutput(ctx context.Context, r *workflow.Result, pc *workflow.Context) []string
}

// NoValidation provides pass-through validation for embedding.
type NoValidation struct{}

func (NoValidation) ValidateInput(context.Context, *workflow.Context) []string { return nil }

func (NoValidation) ValidateOutput(context.Context, *workflow.Result, *workflow.Context) []string {
	return nil
}

// HandlerFunc adapts a function to a Handler without validation.
type HandlerFunc func(ctx context.Context, pc *workflow.Context) (*workflow.Result, error)

func (f HandlerFunc) ValidateInput(context.Context, *workflow.Context) []string { return nil }

func (f HandlerFunc) Execute(ctx context.Context, pc *workflow.Context) (*workflow.Result, error) {
	return f(ctx, pc)
}

func (f HandlerFunc) ValidateOutput(context.Context, *workflow.Result, *workflow.Context) []string {
	return nil
}
