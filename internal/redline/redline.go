// Package redline handles the literal "/red ... /red" change-tracking spans
// that the document renderer turns into red text.
package redline

import (
	"errors"
	"fmt"
	"strings"
)

// Marker opens and closes a tracked span.
const Marker = "/red"

var (
	ErrUnclosed  = errors.New("unclosed /red marker")
	ErrEmptySpan = errors.New("empty /red span")
)

// Mode selects how a stage treats markers in model output.
type Mode int

const (
	// None leaves text untouched.
	None Mode = iota
	// Track keeps new markers and repairs malformed ones.
	Track
	// Preserve keeps the markers already present in the base and strips any
	// the model added.
	Preserve
)

func (m Mode) String() string {
	switch m {
	case Track:
		return "track"
	case Preserve:
		return "preserve"
	default:
		return "none"
	}
}

// Spans returns the contents of the marked spans in s, in order. A trailing
// unclosed marker is ignored.
func Spans(s string) []string {
	parts := strings.Split(s, Marker)
	var spans []string
	for i := 1; i+1 < len(parts); i += 2 {
		spans = append(spans, parts[i])
	}
	return spans
}

// Validate reports whether every marker in s is closed and no span is empty.
// With a single symmetric marker, an empty span is what a nested pair
// collapses to.
func Validate(s string) error {
	n := strings.Count(s, Marker)
	if n%2 != 0 {
		return fmt.Errorf("%w: %d markers", ErrUnclosed, n)
	}
	for _, span := range Spans(s) {
		if strings.TrimSpace(span) == "" {
			return ErrEmptySpan
		}
	}
	return nil
}

// Repair drops empty spans, then drops the last marker if one is left
// unclosed.
func Repair(s string) string {
	if Validate(s) == nil {
		return s
	}
	parts := strings.Split(s, Marker)
	var b strings.Builder
	b.WriteString(parts[0])
	i := 1
	for ; i+1 < len(parts); i += 2 {
		span, rest := parts[i], parts[i+1]
		if strings.TrimSpace(span) != "" {
			b.WriteString(Marker + span + Marker)
		} else {
			b.WriteString(span)
		}
		b.WriteString(rest)
	}
	if i < len(parts) {
		b.WriteString(parts[i])
	}
	return b.String()
}

// Unwrap removes every marker from s, keeping the marked text.
func Unwrap(s string) string {
	return strings.ReplaceAll(s, Marker, "")
}

// PreserveExisting returns after with the spans of before kept and every
// other span unwrapped. When the model dropped the markers around an existing
// span but kept its text, the markers are put back around its first
// occurrence outside the spans already kept.
func PreserveExisting(before, after string) string {
	existing := make(map[string]bool)
	for _, span := range Spans(before) {
		existing[strings.TrimSpace(span)] = true
	}

	after = Repair(after)
	parts := strings.Split(after, Marker)
	segs := []segment{{text: parts[0]}}
	kept := make(map[string]bool)
	for i := 1; i+1 < len(parts); i += 2 {
		span, rest := parts[i], parts[i+1]
		key := strings.TrimSpace(span)
		if existing[key] {
			kept[key] = true
			segs = append(segs, segment{text: span, marked: true})
		} else {
			segs = append(segs, segment{text: span})
		}
		segs = append(segs, segment{text: rest})
	}

	for _, span := range Spans(before) {
		key := strings.TrimSpace(span)
		if key == "" || kept[key] {
			continue
		}
		if restored, ok := mark(segs, key); ok {
			segs = restored
			kept[key] = true
		}
	}

	var b strings.Builder
	for _, seg := range segs {
		if seg.marked {
			b.WriteString(Marker + seg.text + Marker)
		} else {
			b.WriteString(seg.text)
		}
	}
	out := b.String()
	if Validate(out) != nil {
		return Unwrap(out)
	}
	return out
}

type segment struct {
	text   string
	marked bool
}

// mark wraps the first unmarked occurrence of key in segs.
func mark(segs []segment, key string) ([]segment, bool) {
	for i, seg := range segs {
		if seg.marked {
			continue
		}
		idx := strings.Index(seg.text, key)
		if idx < 0 {
			continue
		}
		out := make([]segment, 0, len(segs)+2)
		out = append(out, segs[:i]...)
		out = append(out,
			segment{text: seg.text[:idx]},
			segment{text: key, marked: true},
			segment{text: seg.text[idx+len(key):]},
		)
		return append(out, segs[i+1:]...), true
	}
	return segs, false
}
