package analysis

import (
	"context"
	"fmt"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/logging"
	"github.com/nomis52/agentpipe/status"
	"github.com/nomis52/agentpipe/workflow"
)

// LLMClient analyses one file with a language model.
type LLMClient interface {
	Analyze(ctx context.Context, f File) ([]Issue, error)
}

// LLMReviewer sends every submitted file to an LLMClient and stores the
// issues in SlotLLMIssues. A file the model fails on produces a warning; the
// run fails only when every file failed.
type LLMReviewer struct {
	agent.NoValidation
	Client LLMClient
}

func (l *LLMReviewer) Execute(ctx context.Context, pc *workflow.Context) (*workflow.Result, error) {
	if !planFlag(pc, PlanRunLLM, false) {
		pc.SetSlot(SlotLLMIssues, []Issue{})
		return workflow.NewSuccess([]Issue{}).WithWarnings("LLM analysis disabled by plan"), nil
	}
	if l.Client == nil {
		return workflow.NewFailure("no LLM client configured"), nil
	}

	req, ok := RequestFrom(pc)
	if !ok {
		return workflow.NewFailure("input is not an analysis request"), nil
	}

	logger := logging.FromContext(ctx, nil)
	line := status.FromContext(ctx)

	issues := []Issue{}
	var warnings []string
	for i, f := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line.Set(fmt.Sprintf("reviewing %s (%d/%d)", f.Path, i+1, len(req.Files)))
		found, err := l.Client.Analyze(ctx, f)
		if err != nil {
			logger.WarnContext(ctx, "LLM analysis failed", "path", f.Path, "error", err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", f.Path, err))
			continue
		}
		for _, is := range found {
			if is.File == "" {
				is.File = f.Path
			}
			is.DetectedBy = DetectedByLLM
			issues = append(issues, is)
		}
	}

	if len(req.Files) > 0 && len(warnings) == len(req.Files) {
		return workflow.NewFailure("LLM analysis failed for every file").WithWarnings(warnings...), nil
	}

	pc.SetSlot(SlotLLMIssues, issues)
	return workflow.NewSuccess(issues).
		WithWarnings(warnings...).
		WithMetadata("issues", len(issues)), nil
}
