package parse

import (
	"errors"
	"strings"

	"github.com/bizmatters/deviation-service/internal/record"
)

// ErrEmptyInput is returned by Input for blank documents.
var ErrEmptyInput = errors.New("input is empty")

// Input reads a caller-supplied document that may be a JSON object, a fenced
// JSON block, or labelled strict text.
func Input(raw string) (*record.Record, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if rec, err := record.ParseString(text); err == nil {
		return rec, nil
	}
	if strings.HasPrefix(text, "```") || strings.HasPrefix(text, "{") {
		if rec, ok := ExtractJSON(text); ok {
			return rec, nil
		}
	}
	return StructuredText(text), nil
}
