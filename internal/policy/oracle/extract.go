package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ThomasGates3/ai-powered-iam/pkg/policydoc"
)

var (
	// ErrNoJSONObject means the completion held no syntactically valid JSON object.
	ErrNoJSONObject = errors.New("no JSON object found in oracle response")
	// ErrInvalidDocument means the first JSON object was not a usable policy.
	ErrInvalidDocument = errors.New("oracle response is not a valid policy document")
)

// ExtractJSON pulls the first well-formed JSON object out of free text and
// decodes it as a policy document. Models wrap answers in prose or markdown
// fences often enough that the whole reply cannot be decoded directly.
func ExtractJSON(text string) (*policydoc.Document, error) {
	payload, ok := FindJSONObject(text)
	if !ok {
		return nil, ErrNoJSONObject
	}
	doc, err := policydoc.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return doc, nil
}

// FindJSONObject returns the first balanced {...} substring that is valid
// JSON. Braces inside string literals are ignored. A balanced candidate that
// fails to decode is skipped and scanning resumes at the next '{'.
func FindJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end, ok := matchBrace(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
