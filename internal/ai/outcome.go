package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Outcome is the result of turning model output into a T. Either the value
// was parsed from the reply, or it is a deterministic fallback and Reason
// says why.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	Reason   string
}

func Parsed[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func Fallback[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Fallback: true, Reason: reason}
}

// Label is the metrics label for the outcome.
func (o Outcome[T]) Label() string {
	if o.Fallback {
		return "fallback"
	}
	return "parsed"
}

var errNoJSON = errors.New("no JSON object in AI response")

// ExtractJSON strips markdown code fences and returns the outermost {...}.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return content[start : end+1], nil
}

// Decode extracts the JSON object from content and unmarshals it into a T.
func Decode[T any](content string) (T, error) {
	var v T
	raw, err := ExtractJSON(content)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("failed to parse AI result: %w", err)
	}
	return v, nil
}
