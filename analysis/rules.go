package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/status"
	"github.com/nomis52/agentpipe/workflow"
)

// Issue types reported by the built-in rules.
const (
	TypeMissingAssertion   = "missing-assertion"
	TypeRedundantAssertion = "redundant-assertion"
)

// RuleEngine checks a parsed file and reports the issues it finds.
type RuleEngine interface {
	Check(f ParsedFile) []Issue
}

// Rules runs each engine in order and concatenates the results.
type Rules []RuleEngine

func (rs Rules) Check(f ParsedFile) []Issue {
	var issues []Issue
	for _, r := range rs {
		issues = append(issues, r.Check(f)...)
	}
	return issues
}

// AssertionRules returns the default rule set.
func AssertionRules() Rules {
	return Rules{MissingAssertionRule{}, RedundantAssertionRule{}}
}

// MissingAssertionRule flags test functions that assert nothing. A test that
// uses pytest.raises counts as asserting.
type MissingAssertionRule struct{}

func (MissingAssertionRule) Check(f ParsedFile) []Issue {
	var issues []Issue
	for _, t := range f.Tests {
		if len(t.Assertions) > 0 || strings.Contains(t.Source, "pytest.raises") {
			continue
		}
		issues = append(issues, Issue{
			File:       f.Path,
			Line:       t.Line,
			Severity:   SeverityError,
			Type:       TypeMissingAssertion,
			Message:    fmt.Sprintf("Test function '%s' has no assertions", t.Name),
			DetectedBy: DetectedByRules,
			Suggestion: Suggestion{
				Action:      "add",
				NewCode:     "    assert result is not None  # Add appropriate assertion",
				Explanation: "Add assertions to verify the expected behavior of your test.",
			},
		})
	}
	return issues
}

// RedundantAssertionRule flags assertions repeated within one test function.
// Assertions are compared with comments stripped and whitespace collapsed.
type RedundantAssertionRule struct{}

func (RedundantAssertionRule) Check(f ParsedFile) []Issue {
	var issues []Issue
	for _, t := range f.Tests {
		seen := make(map[string]Assertion, len(t.Assertions))
		for _, a := range t.Assertions {
			key := assertionKey(a.Source)
			first, dup := seen[key]
			if !dup {
				seen[key] = a
				continue
			}
			issues = append(issues, Issue{
				File:       f.Path,
				Line:       a.Line,
				Column:     a.Column,
				Severity:   SeverityWarning,
				Type:       TypeRedundantAssertion,
				Message:    fmt.Sprintf("Redundant assertion: same as line %d", first.Line),
				DetectedBy: DetectedByRules,
				Suggestion: Suggestion{
					Action:      "remove",
					OldCode:     a.Source,
					Explanation: fmt.Sprintf("This assertion is identical to the one at line %d. Remove to reduce redundancy.", first.Line),
				},
			})
		}
	}
	return issues
}

func assertionKey(src string) string {
	code, _, _ := strings.Cut(src, "#")
	return strings.Join(strings.Fields(code), " ")
}

// RuleChecker runs a RuleEngine over every parsed file and stores the
// issues in SlotRuleIssues. It does nothing when the plan disables rules.
type RuleChecker struct {
	agent.NoValidation
	Engine RuleEngine
}

func (r *RuleChecker) ValidateInput(_ context.Context, pc *workflow.Context) []string {
	if _, ok := pc.Slot(SlotParsedFiles); !ok {
		return []string{"no parsed files in context"}
	}
	return nil
}

func (r *RuleChecker) Execute(ctx context.Context, pc *workflow.Context) (*workflow.Result, error) {
	if !planFlag(pc, PlanRunRule, true) {
		pc.SetSlot(SlotRuleIssues, []Issue{})
		return workflow.NewSuccess([]Issue{}).WithWarnings("rule analysis disabled by plan"), nil
	}

	engine := r.Engine
	if engine == nil {
		engine = AssertionRules()
	}

	files := ParsedFiles(pc)
	issues := []Issue{}
	for i, f := range files {
		status.FromContext(ctx).Set(fmt.Sprintf("checking %s (%d/%d)", f.Path, i+1, len(files)))
		issues = append(issues, engine.Check(f)...)
	}

	pc.SetSlot(SlotRuleIssues, issues)
	return workflow.NewSuccess(issues).WithMetadata("issues", len(issues)), nil
}
