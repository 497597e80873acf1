package workflow

// Metadata keys understood by the framework.
const (
	MetaAgent         = "agent"
	MetaStage         = "stage"
	MetaExceptionType = "exception_type"
	MetaCritical      = "critical"
)

// Stage names recorded under MetaStage.
const (
	StageInputValidation = "input_validation"
	StageParsing         = "parsing"
	StageExecution       = "execution"
)

// Result is the outcome of a single agent run.
//
// LIFECYCLE:
// - Built by an agent's Execute() (or by the framework on validation failure / error)
// - Finalised by Agent.Run(): output validation errors appended, ExecutionTimeMs set
// - Stored in the Context under the agent's name and returned to the caller
//
// A Result must be treated as immutable once Agent.Run() has returned it.
type Result struct {
	// Success is false whenever Errors contains an entry produced by the framework.
	Success bool `json:"success"`

	// Data is the agent-specific payload. Opaque to the framework.
	Data any `json:"data"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	// Metadata carries at least MetaAgent and, for framework failures, MetaStage.
	Metadata map[string]any `json:"metadata"`

	// ExecutionTimeMs is the wall time of the run, overwritten by Agent.Run().
	ExecutionTimeMs int64 `json:"execution_time_ms"`
}

// NewSuccess returns a successful result carrying data.
func NewSuccess(data any) *Result {
	return &Result{
		Success:  true,
		Data:     data,
		Errors:   []string{},
		Warnings: []string{},
		Metadata: map[string]any{},
	}
}

// NewFailure returns a failed result with the given error messages.
func NewFailure(errs ...string) *Result {
	r := NewSuccess(nil)
	r.Success = false
	r.Errors = append(r.Errors, errs...)
	return r
}

// WithMetadata sets a metadata key and returns the result for chaining.
func (r *Result) WithMetadata(key string, value any) *Result {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[key] = value
	return r
}

// WithWarnings appends warnings and returns the result for chaining.
func (r *Result) WithWarnings(warnings ...string) *Result {
	r.Warnings = append(r.Warnings, warnings...)
	return r
}

// Stage returns the MetaStage value, or "" if unset or not a string.
func (r *Result) Stage() string {
	s, _ := r.Metadata[MetaStage].(string)
	return s
}

// IsCriticalFlagged reports whether MetaCritical is set to true.
func (r *Result) IsCriticalFlagged() bool {
	c, _ := r.Metadata[MetaCritical].(bool)
	return c
}

// normalize replaces nil collections so results always serialize the same way.
func (r *Result) normalize() {
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
}
