package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/agentpipe/workflow"
)

func parsedSample(t *testing.T) ParsedFile {
	t.Helper()
	parsed, err := ParseFile(sampleFile())
	require.NoError(t, err)
	return parsed
}

func TestMissingAssertionRule(t *testing.T) {
	issues := MissingAssertionRule{}.Check(parsedSample(t))

	require.Len(t, issues, 1)
	is := issues[0]
	assert.Equal(t, "tests/test_calc.py", is.File)
	assert.Equal(t, 8, is.Line)
	assert.Equal(t, SeverityError, is.Severity)
	assert.Equal(t, TypeMissingAssertion, is.Type)
	assert.Equal(t, "Test function 'test_nothing' has no assertions", is.Message)
	assert.Equal(t, DetectedByRules, is.DetectedBy)
	assert.Equal(t, "add", is.Suggestion.Action)
}

func TestRedundantAssertionRule(t *testing.T) {
	issues := RedundantAssertionRule{}.Check(parsedSample(t))

	require.Len(t, issues, 1)
	is := issues[0]
	assert.Equal(t, 6, is.Line)
	assert.Equal(t, 4, is.Column)
	assert.Equal(t, SeverityWarning, is.Severity)
	assert.Equal(t, "Redundant assertion: same as line 5", is.Message)
	assert.Equal(t, "remove", is.Suggestion.Action)
	assert.Equal(t, "assert result == 3  # again", is.Suggestion.OldCode)
}

func TestAssertionKey(t *testing.T) {
	assert.Equal(t, "assert a == b", assertionKey("assert  a ==   b # note"))
	assert.Equal(t, assertionKey("assert x"), assertionKey("assert x  "))
}

func TestRules_Concatenates(t *testing.T) {
	issues := AssertionRules().Check(parsedSample(t))

	require.Len(t, issues, 2)
	assert.Equal(t, TypeMissingAssertion, issues[0].Type)
	assert.Equal(t, TypeRedundantAssertion, issues[1].Type)
}

func TestRuleChecker(t *testing.T) {
	t.Run("runs engine over parsed files", func(t *testing.T) {
		pc := workflow.NewContext("req", nil)
		pc.SetSlot(SlotParsedFiles, []ParsedFile{parsedSample(t)})

		r, err := (&RuleChecker{}).Execute(context.Background(), pc)
		require.NoError(t, err)
		assert.True(t, r.Success)
		assert.Len(t, issuesIn(pc, SlotRuleIssues), 2)
	})

	t.Run("disabled by plan", func(t *testing.T) {
		pc := workflow.NewContext("req", nil)
		pc.SetSlot(SlotParsedFiles, []ParsedFile{parsedSample(t)})
		pc.SetPlan(PlanRunRule, false)

		r, err := (&RuleChecker{Engine: MissingAssertionRule{}}).Execute(context.Background(), pc)
		require.NoError(t, err)
		assert.True(t, r.Success)
		assert.Equal(t, []string{"rule analysis disabled by plan"}, r.Warnings)
		assert.Empty(t, issuesIn(pc, SlotRuleIssues))
	})

	t.Run("requires parsed files", func(t *testing.T) {
		pc := workflow.NewContext("req", nil)
		assert.Equal(t, []string{"no parsed files in context"},
			(&RuleChecker{}).ValidateInput(context.Background(), pc))
	})
}
