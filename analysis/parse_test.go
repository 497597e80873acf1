package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/agentpipe/workflow"
)

func TestParseFile(t *testing.T) {
	parsed, err := ParseFile(sampleFile())
	require.NoError(t, err)
	assert.Equal(t, "tests/test_calc.py", parsed.Path)

	require.Len(t, parsed.Tests, 4)
	names := make([]string, len(parsed.Tests))
	for i, tf := range parsed.Tests {
		names[i] = tf.Name
	}
	assert.Equal(t, []string{"test_add", "test_nothing", "test_raises", "test_equal"}, names)

	add := parsed.Tests[0]
	assert.Equal(t, 3, add.Line)
	assert.Empty(t, add.Class)
	require.Len(t, add.Assertions, 2)
	assert.Equal(t, Assertion{Line: 5, Column: 4, Source: "assert result == 3"}, add.Assertions[0])
	assert.Equal(t, 6, add.Assertions[1].Line)
	assert.Contains(t, add.Source, "def test_add():")
	assert.NotContains(t, add.Source, "test_nothing")

	assert.Empty(t, parsed.Tests[1].Assertions)

	raises := parsed.Tests[2]
	assert.Equal(t, "TestCalc", raises.Class)
	assert.Equal(t, 15, raises.Line)
	assert.Empty(t, raises.Assertions)
	assert.Contains(t, raises.Source, "pytest.raises")

	equal := parsed.Tests[3]
	assert.Equal(t, "TestCalc", equal.Class)
	require.Len(t, equal.Assertions, 1)
	assert.Equal(t, 8, equal.Assertions[0].Column)
}

func TestParseFile_NoTests(t *testing.T) {
	parsed, err := ParseFile(File{Path: "conftest.py", Content: "import pytest\n"})
	require.NoError(t, err)
	assert.Empty(t, parsed.Tests)
	assert.NotNil(t, parsed.Tests)
}

func TestParseFile_Binary(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"nul byte", "def test_a():\n\x00"},
		{"invalid utf8", "def test_a():\n\xff\xfe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile(File{Path: "x.py", Content: tt.content})
			assert.ErrorIs(t, err, ErrBinaryContent)
		})
	}
}

func TestParser_ValidateInput(t *testing.T) {
	p := &Parser{MaxFiles: 2, MaxFileSize: 10}
	tests := []struct {
		name  string
		input any
		want  []string
	}{
		{"not a request", "hello", []string{"input is not an analysis request"}},
		{"no files", &Request{}, []string{"no files to analyze"}},
		{
			"too many files",
			Request{Files: []File{{Path: "a"}, {Path: "b"}, {Path: "c"}}},
			[]string{"too many files: 3 (max 2)"},
		},
		{
			"missing path and oversized",
			&Request{Files: []File{{Content: "x"}, {Path: "big.py", Content: "0123456789abc"}}},
			[]string{"file 0 has no path", "file big.py is 13 bytes (max 10)"},
		},
		{"valid", &Request{Files: []File{{Path: "a.py", Content: "x"}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := workflow.NewContext("req", tt.input)
			assert.Equal(t, tt.want, p.ValidateInput(context.Background(), pc))
		})
	}
}

func TestParser_Execute(t *testing.T) {
	pc := workflow.NewContext("req", &Request{Files: []File{
		sampleFile(),
		{Path: "tests/conftest.py", Content: "import pytest\n"},
	}})

	r, err := (&Parser{}).Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, []string{"tests/conftest.py contains no test functions"}, r.Warnings)
	assert.Equal(t, 4, r.Metadata["total_tests"])

	files := ParsedFiles(pc)
	require.Len(t, files, 2)
	assert.Len(t, files[0].Tests, 4)
}

func TestParser_ExecuteBinaryIsParsingFailure(t *testing.T) {
	pc := workflow.NewContext("req", &Request{Files: []File{{Path: "bin.py", Content: "\x00"}}})

	r, err := (&Parser{}).Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, workflow.StageParsing, r.Stage())
	_, ok := pc.Slot(SlotParsedFiles)
	assert.False(t, ok)
}

func TestPlanner(t *testing.T) {
	tests := []struct {
		name     string
		def      Mode
		req      Mode
		wantRule bool
		wantLLM  bool
	}{
		{"default rules", ModeRules, "", true, false},
		{"request overrides", ModeRules, ModeLLM, false, true},
		{"hybrid", ModeHybrid, "", true, true},
		{"empty default", "", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := workflow.NewContext("req", &Request{Mode: tt.req})
			r, err := (&Planner{DefaultMode: tt.def}).Execute(context.Background(), pc)
			require.NoError(t, err)
			require.True(t, r.Success)
			assert.Equal(t, tt.wantRule, planFlag(pc, PlanRunRule, false))
			assert.Equal(t, tt.wantLLM, planFlag(pc, PlanRunLLM, false))
		})
	}
}

func TestPlanner_UnknownModeIsCritical(t *testing.T) {
	pc := workflow.NewContext("req", &Request{Mode: "magic"})
	r, err := (&Planner{DefaultMode: ModeRules}).Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.True(t, r.IsCriticalFlagged())
	_, ok := pc.Plan(PlanMode)
	assert.False(t, ok)
}

func TestParseFile_CommentsAndStringsDoNotEndTest(t *testing.T) {
	src := `def test_commented():
    value = compute()
# stray comment at column 0
    assert value == 1

def test_docstring():
    text = """
first line
def test_fake():
"""
    assert text
`
	parsed, err := ParseFile(File{Path: "test_edge.py", Content: src})
	require.NoError(t, err)

	require.Len(t, parsed.Tests, 2)
	assert.Equal(t, "test_commented", parsed.Tests[0].Name)
	require.Len(t, parsed.Tests[0].Assertions, 1)
	assert.Equal(t, 4, parsed.Tests[0].Assertions[0].Line)

	assert.Equal(t, "test_docstring", parsed.Tests[1].Name)
	require.Len(t, parsed.Tests[1].Assertions, 1)
	assert.Equal(t, 11, parsed.Tests[1].Assertions[0].Line)
	assert.Contains(t, parsed.Tests[1].Source, "def test_fake():")

	assert.Empty(t, MissingAssertionRule{}.Check(parsed))
}

func TestOpensTripleQuote(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`x = 1`, ""},
		{`    text = """`, `"""`},
		{`    """one line docstring"""`, ""},
		{`    s = '''`, `'''`},
		{`    a = ''' contains """`, `'''`},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, opensTripleQuote(tt.line))
		})
	}
}
