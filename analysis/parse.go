package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nomis52/agentpipe/agent"
	"github.com/nomis52/agentpipe/logging"
	"github.com/nomis52/agentpipe/status"
	"github.com/nomis52/agentpipe/workflow"
)

var (
	testDefRe = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+(test\w*)\s*\(`)
	classRe   = regexp.MustCompile(`^(\s*)class\s+(Test\w*)\s*[:(]`)
	assertRe  = regexp.MustCompile(`^(\s*)(assert\b|self\.assert\w*\s*\()`)

	// ErrBinaryContent is returned for files that are not UTF-8 text.
	ErrBinaryContent = errors.New("file is not valid UTF-8 text")
)

// ParseFile extracts the test functions and test class methods of a Python
// test file, with the assertions each one contains.
func ParseFile(f File) (ParsedFile, error) {
	if !utf8.ValidString(f.Content) || strings.ContainsRune(f.Content, 0) {
		return ParsedFile{}, fmt.Errorf("%s: %w", f.Path, ErrBinaryContent)
	}

	parsed := ParsedFile{Path: f.Path, Tests: []TestFunction{}}
	lines := strings.Split(f.Content, "\n")

	var (
		class       string
		classIndent = -1
		current     *TestFunction
		testIndent  = -1
		body        []string
		// openQuote is the delimiter of an unterminated triple-quoted string.
		openQuote string
	)
	closeTest := func() {
		if current != nil {
			current.Source = strings.TrimRight(strings.Join(body, "\n"), "\n")
			parsed.Tests = append(parsed.Tests, *current)
		}
		current, testIndent, body = nil, -1, nil
	}

	for i, line := range lines {
		lineNo := i + 1
		if openQuote != "" {
			if current != nil {
				body = append(body, line)
			}
			if strings.Count(line, openQuote)%2 == 1 {
				openQuote = ""
			}
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			if current != nil {
				body = append(body, line)
			}
			continue
		}
		openQuote = opensTripleQuote(line)
		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		if current != nil && indent <= testIndent {
			closeTest()
		}
		if classIndent >= 0 && indent <= classIndent {
			class, classIndent = "", -1
		}

		if current != nil {
			body = append(body, line)
			if m := assertRe.FindStringSubmatch(line); m != nil {
				current.Assertions = append(current.Assertions, Assertion{
					Line:   lineNo,
					Column: len(m[1]),
					Source: strings.TrimSpace(line),
				})
			}
			continue
		}

		if m := classRe.FindStringSubmatch(line); m != nil {
			class, classIndent = m[2], len(m[1])
			continue
		}
		if m := testDefRe.FindStringSubmatch(line); m != nil {
			owner := ""
			if classIndent >= 0 && len(m[1]) > classIndent {
				owner = class
			}
			current = &TestFunction{Name: m[2], Class: owner, Line: lineNo, Assertions: []Assertion{}}
			testIndent = len(m[1])
			body = []string{line}
		}
	}
	closeTest()

	return parsed, nil
}

// opensTripleQuote returns the triple-quote delimiter left open at the end of
// line, or "".
func opensTripleQuote(line string) string {
	dq, sq := strings.Index(line, `"""`), strings.Index(line, "'''")
	delim := `"""`
	switch {
	case dq < 0 && sq < 0:
		return ""
	case dq < 0 || (sq >= 0 && sq < dq):
		delim = "'''"
	}
	if strings.Count(line, delim)%2 == 1 {
		return delim
	}
	return ""
}

// Parser splits every submitted file into test functions and stores the
// result in SlotParsedFiles. A file that cannot be parsed fails the run at
// stage "parsing", which stops the pipeline.
type Parser struct {
	agent.NoValidation
	MaxFiles    int
	MaxFileSize int
}

// ValidateInput checks the request shape and size limits.
func (p *Parser) ValidateInput(_ context.Context, pc *workflow.Context) []string {
	req, ok := RequestFrom(pc)
	if !ok {
		return []string{"input is not an analysis request"}
	}
	if len(req.Files) == 0 {
		return []string{"no files to analyze"}
	}

	var errs []string
	if p.MaxFiles > 0 && len(req.Files) > p.MaxFiles {
		errs = append(errs, fmt.Sprintf("too many files: %d (max %d)", len(req.Files), p.MaxFiles))
	}
	for i, f := range req.Files {
		if f.Path == "" {
			errs = append(errs, fmt.Sprintf("file %d has no path", i))
			continue
		}
		if p.MaxFileSize > 0 && len(f.Content) > p.MaxFileSize {
			errs = append(errs, fmt.Sprintf("file %s is %d bytes (max %d)", f.Path, len(f.Content), p.MaxFileSize))
		}
	}
	return errs
}

func (p *Parser) Execute(ctx context.Context, pc *workflow.Context) (*workflow.Result, error) {
	req, _ := RequestFrom(pc)
	logger := logging.FromContext(ctx, nil)
	status.FromContext(ctx).Set(fmt.Sprintf("parsing %d files", len(req.Files)))

	parsed := make([]ParsedFile, 0, len(req.Files))
	var warnings []string
	for _, f := range req.Files {
		pf, err := ParseFile(f)
		if err != nil {
			return workflow.NewFailure(err.Error()).
				WithMetadata(workflow.MetaStage, workflow.StageParsing), nil
		}
		if len(pf.Tests) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s contains no test functions", f.Path))
		}
		logger.DebugContext(ctx, "parsed file", "path", f.Path, "tests", len(pf.Tests))
		parsed = append(parsed, pf)
	}

	pc.SetSlot(SlotParsedFiles, parsed)
	return workflow.NewSuccess(parsed).
		WithWarnings(warnings...).
		WithMetadata("total_tests", countTests(parsed)), nil
}

// RequestFrom returns the analysis request carried by pc.
func RequestFrom(pc *workflow.Context) (*Request, bool) {
	switch req := pc.Input().(type) {
	case *Request:
		return req, req != nil
	case Request:
		return &req, true
	}
	return nil, false
}

// ParsedFiles returns the parser output stored in pc.
func ParsedFiles(pc *workflow.Context) []ParsedFile {
	v, _ := pc.Slot(SlotParsedFiles)
	files, _ := v.([]ParsedFile)
	return files
}

func countTests(files []ParsedFile) int {
	n := 0
	for _, f := range files {
		n += len(f.Tests)
	}
	return n
}
