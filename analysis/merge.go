package analysis

import (
	"context"
	"sort"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/workflow"
)

type issueKey struct {
	file string
	line int
	typ  string
}

// MergeIssues combines rule and LLM issues. When both report the same
// (file, line, type) the rule issue is kept. The result is sorted by file,
// line, then type.
func MergeIssues(rules, llm []Issue) []Issue {
	seen := make(map[issueKey]bool, len(rules)+len(llm))
	merged := make([]Issue, 0, len(rules)+len(llm))
	for _, list := range [][]Issue{rules, llm} {
		for _, is := range list {
			k := issueKey{is.File, is.Line, is.Type}
			if seen[k] {
				continue
			}
			seen[k] = true
			merged = append(merged, is)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Type < b.Type
	})
	return merged
}

// Merger builds the final Report from the rule and LLM slots.
type Merger struct {
	agent.NoValidation
}

func (m *Merger) Execute(_ context.Context, pc *workflow.Context) (*workflow.Result, error) {
	merged := MergeIssues(issuesIn(pc, SlotRuleIssues), issuesIn(pc, SlotLLMIssues))

	by := map[string]int{}
	for _, is := range merged {
		by[is.DetectedBy]++
	}
	report := Report{
		Issues:     merged,
		TotalTests: countTests(ParsedFiles(pc)),
		IssuesBy:   by,
	}

	pc.SetSlot(SlotMergedIssues, report)
	return workflow.NewSuccess(report).WithMetadata("issues", len(merged)), nil
}

// ReportFrom returns the merged report stored in pc.
func ReportFrom(pc *workflow.Context) (Report, bool) {
	v, ok := pc.Slot(SlotMergedIssues)
	if !ok {
		return Report{}, false
	}
	r, ok := v.(Report)
	return r, ok
}

func issuesIn(pc *workflow.Context, slot string) []Issue {
	v, _ := pc.Slot(slot)
	issues, _ := v.([]Issue)
	return issues
}
