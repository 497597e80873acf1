package llmclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

	// ErrEmptyResponse is returned by CleanJSON for blank input.
	ErrEmptyResponse = errors.New("empty response")
)

// CleanJSON extracts a JSON object from a model answer that may wrap it in a
// markdown fence or surround it with prose. Trailing commas outside string
// literals are removed.
func CleanJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyResponse
	}
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON found in %q", truncate(s, 80))
	}
	end := strings.LastIndexAny(s, "}]")
	if end < start {
		return "", fmt.Errorf("unterminated JSON in %q", truncate(s, 80))
	}
	return removeTrailingCommas(s[start:end+1]), nil
}

// ParseJSON decodes a model answer into v, cleaning it first if it does not
// parse as is.
func ParseJSON(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	cleaned, err := CleanJSON(s)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(cleaned), v)
}

// removeTrailingCommas drops commas that directly precede a closing bracket
// or brace. String contents are copied untouched.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				inString = false
			}
			continue
		case c == '"':
			inString = true
		case c == ',':
			rest := strings.TrimLeft(s[i+1:], " \t\r\n")
			if rest != "" && (rest[0] == '}' || rest[0] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
