package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Completions wrap their JSON in prose more often than not: preambles,
// markdown fences, trailing commentary. The extractors below cut from the
// first opening bracket of the expected kind to the last closing one and
// leave strict parsing to encoding/json, so "Here are the results: [...]
// Let me know!" decodes the same as a bare array.

// ExtractJSONArray returns the first-'['-to-last-']' slice of text.
func ExtractJSONArray(text string) (string, error) {
	return extractDelimited(text, '[', ']')
}

// ExtractJSONObject returns the first-'{'-to-last-'}' slice of text.
func ExtractJSONObject(text string) (string, error) {
	return extractDelimited(text, '{', '}')
}

func extractDelimited(text string, open, close byte) (string, error) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", fmt.Errorf("no %q found in completion", string(open))
	}
	end := strings.LastIndexByte(text, close)
	if end < start {
		return "", fmt.Errorf("no closing %q found in completion", string(close))
	}
	return text[start : end+1], nil
}

// DecodeJSONArray extracts and unmarshals a JSON array of T from completion
// text that may carry surrounding prose.
func DecodeJSONArray[T any](text string) ([]T, error) {
	raw, err := ExtractJSONArray(text)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode completion array: %w", err)
	}
	return out, nil
}
