package llmclient

import (
	"fmt"

	"github.com/nomis52/agentpipe/analysis"
)

const systemPrompt = `You are a pytest testing expert. Analyze test assertions to determine if they
adequately verify the expected behavior. Identify weak, missing, or redundant
assertions and test smells such as sleeps, shared state or over-mocking.

Respond ONLY with valid JSON in this format:
{
  "issues": [
    {
      "type": "weak-assertion" | "missing-assertion" | "over-assertion" | "test-smell",
      "line": <line_number>,
      "severity": "error" | "warning" | "info",
      "message": "description of the issue",
      "suggestion": "how to improve the test",
      "example_code": "suggested code fix"
    }
  ],
  "overall_quality": "poor" | "fair" | "good" | "excellent",
  "confidence": 0.0-1.0
}`

func userPrompt(f analysis.File) string {
	return fmt.Sprintf("Analyze the test functions in %s:\n```python\n%s\n```\n\n"+
		"Line numbers in your answer must refer to this file.", f.Path, f.Content)
}
