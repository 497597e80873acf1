package llmclient

import (
	"errors"

	"github.com/nomis52/agentpipe/analysis"
)

// ErrNoChoices is returned when the endpoint answers without any choice.
var ErrNoChoices = errors.New("response contained no choices")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// reviewIssue is one finding in the model's JSON answer.
type reviewIssue struct {
	Type        string `json:"type"`
	Line        int    `json:"line"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Suggestion  string `json:"suggestion"`
	ExampleCode string `json:"example_code"`
}

type reviewResponse struct {
	Issues         []reviewIssue `json:"issues"`
	OverallQuality string        `json:"overall_quality"`
	Confidence     float64       `json:"confidence"`
}

func (r reviewResponse) toIssues(path string) []analysis.Issue {
	issues := make([]analysis.Issue, 0, len(r.Issues))
	for _, ri := range r.Issues {
		severity := ri.Severity
		switch severity {
		case analysis.SeverityError, analysis.SeverityWarning, analysis.SeverityInfo:
		default:
			severity = analysis.SeverityInfo
		}
		action := "replace"
		if ri.ExampleCode == "" {
			action = "add"
		}
		issues = append(issues, analysis.Issue{
			File:       path,
			Line:       ri.Line,
			Severity:   severity,
			Type:       ri.Type,
			Message:    ri.Message,
			DetectedBy: analysis.DetectedByLLM,
			Suggestion: analysis.Suggestion{
				Action:      action,
				NewCode:     ri.ExampleCode,
				Explanation: ri.Suggestion,
			},
		})
	}
	return issues
}
