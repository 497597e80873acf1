package analysis

import (
	"fmt"
)

// Mode selects which analysers run.
type Mode string

const (
	ModeRules  Mode = "rules"
	ModeLLM    Mode = "llm"
	ModeHybrid Mode = "hybrid"
)

// ParseMode converts a configured mode name. "" yields ModeRules.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeRules, nil
	case ModeRules, ModeLLM, ModeHybrid:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown analysis mode %q", s)
}

// RunsRules reports whether the rule engine runs in mode m.
func (m Mode) RunsRules() bool {
	return m == ModeRules || m == ModeHybrid
}

// RunsLLM reports whether the model runs in mode m.
func (m Mode) RunsLLM() bool {
	return m == ModeLLM || m == ModeHybrid
}

// Context slots written by the analysis agents.
const (
	SlotParsedFiles  = "parsed_files"
	SlotRuleIssues   = "rule_issues"
	SlotLLMIssues    = "llm_issues"
	SlotMergedIssues = "merged_issues"
)

// Execution plan keys written by the plan agent.
const (
	PlanMode    = "mode"
	PlanRunRule = "run_rules"
	PlanRunLLM  = "run_llm"
)

// File is one test file submitted for analysis.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Request is the input payload of an analysis pipeline run.
type Request struct {
	Files []File `json:"files"`
	// Mode overrides the pipeline's default mode when set.
	Mode Mode `json:"mode,omitempty"`
}

// Severity of an Issue.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Detectors recorded in Issue.DetectedBy.
const (
	DetectedByRules = "rule_engine"
	DetectedByLLM   = "llm"
)

// Suggestion describes a fix for an Issue.
type Suggestion struct {
	// Action is one of remove, replace, add.
	Action      string `json:"action"`
	OldCode     string `json:"old_code,omitempty"`
	NewCode     string `json:"new_code,omitempty"`
	Explanation string `json:"explanation"`
}

// Issue is a detected test quality problem.
type Issue struct {
	File       string     `json:"file"`
	Line       int        `json:"line"`
	Column     int        `json:"column"`
	Severity   string     `json:"severity"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	DetectedBy string     `json:"detected_by"`
	Suggestion Suggestion `json:"suggestion"`
}

// Assertion is one assertion statement inside a test function.
type Assertion struct {
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Source string `json:"source"`
}

// TestFunction is a test function or method found in a file.
type TestFunction struct {
	Name       string      `json:"name"`
	Class      string      `json:"class,omitempty"`
	Line       int         `json:"line"`
	Source     string      `json:"source"`
	Assertions []Assertion `json:"assertions"`
}

// ParsedFile is the parser's view of one File.
type ParsedFile struct {
	Path  string         `json:"path"`
	Tests []TestFunction `json:"tests"`
}

// Report is the final output of the pipeline, stored in SlotMergedIssues.
type Report struct {
	Issues     []Issue `json:"issues"`
	TotalTests int     `json:"total_tests"`
	// IssuesBy counts issues per detector.
	IssuesBy map[string]int `json:"issues_by"`
}
