package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports a model response that could not be turned into a valid
// assessment, keeping a bounded snippet of the raw text for diagnostics.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse assessment: %s", e.Reason)
}

const rawSnippetLimit = 500

func newParseError(reason, raw string) *ParseError {
	if len(raw) > rawSnippetLimit {
		raw = raw[:rawSnippetLimit]
	}
	return &ParseError{Reason: reason, Raw: raw}
}

// stripFences removes a markdown code fence wrapper, with or without a
// language tag. Models asked for pure JSON still wrap it often enough.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractAssessment parses a model response into a validated Assessment.
// It tries the raw text first, then once more with markdown fences stripped.
func ExtractAssessment(raw string) (*Assessment, error) {
	var a Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		stripped := stripFences(raw)
		if err2 := json.Unmarshal([]byte(stripped), &a); err2 != nil {
			return nil, newParseError(err2.Error(), raw)
		}
	}
	if err := a.Validate(); err != nil {
		return nil, newParseError(err.Error(), raw)
	}
	return &a, nil
}
