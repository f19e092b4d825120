// Package parse turns raw model output into records.
package parse

import (
	"regexp"
	"strings"

	"github.com/bizmatters/deviation-service/internal/record"
)

var (
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	// "key": "value" pairs; values may hold escaped quotes and span lines.
	pairPattern = regexp.MustCompile(`(?s)"((?:[^"\\]|\\.)+?)"\s*:\s*"((?:[^"\\]|\\.)*?)"`)
)

// ExtractJSON pulls one JSON object out of raw model output. It strips code
// fences, falls back to the outermost brace span, repairs raw control
// characters inside strings, and finally salvages "key": "value" pairs.
// It reports false when nothing usable was found and never panics.
func ExtractJSON(raw string) (*record.Record, bool) {
	candidate := Candidate(raw)

	if rec, err := record.ParseString(candidate); err == nil {
		return rec, true
	}
	if repaired := EscapeControlChars(candidate); repaired != candidate {
		if rec, err := record.ParseString(repaired); err == nil {
			return rec, true
		}
	}
	if rec := salvagePairs(candidate); rec.Len() > 0 {
		return rec, true
	}
	return nil, false
}

// Candidate returns the text most likely to hold the JSON object: the
// interior of the first code fence if any, narrowed to the span between the
// first '{' and the last '}'.
func Candidate(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// EscapeControlChars escapes literal newlines, carriage returns and tabs
// that appear inside JSON string literals.
func EscapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\':
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = false
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func salvagePairs(text string) *record.Record {
	out := record.New()
	for _, m := range pairPattern.FindAllStringSubmatch(text, -1) {
		key := strings.ToValidUTF8(unescape(m[1]), "")
		if strings.TrimSpace(key) == "" {
			continue
		}
		out.Set(key, record.String(strings.ToValidUTF8(unescape(m[2]), "")))
	}
	return out
}

var fallbackUnescaper = strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\t`, "\t", `\r`, "", `\\`, `\`)

func unescape(s string) string {
	v, err := record.ParseValue([]byte(EscapeControlChars(`"` + s + `"`)))
	if err == nil {
		if text, ok := v.Text(); ok {
			return text
		}
	}
	return fallbackUnescaper.Replace(s)
}
