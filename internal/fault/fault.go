// Package fault defines the typed failures surfaced by deviation workflows.
package fault

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure by how callers are expected to react to it.
type Kind string

const (
	// ParseFailure means model output could not be turned into a record.
	// Workflows absorb it whenever a base record exists.
	ParseFailure Kind = "parse_failure"
	// ValidationFailure means a produced record does not satisfy its schema.
	ValidationFailure Kind = "validation_failure"
	// CollaboratorFailure means the LLM, OCR or transcription call failed.
	CollaboratorFailure Kind = "collaborator_failure"
	// InputFailure means the caller supplied unusable input.
	InputFailure Kind = "input_failure"
)

// Fault is a classified failure. Context carries caller-identifying values
// (filename, instruction) so retries can be correlated.
type Fault struct {
	Kind    Kind
	Op      string
	Message string
	Fields  []string
	Context map[string]string
	Err     error
}

func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(f.Op)
	b.WriteString(": ")
	b.WriteString(string(f.Kind))
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if len(f.Fields) > 0 {
		b.WriteString(" (fields: ")
		b.WriteString(strings.Join(f.Fields, ", "))
		b.WriteString(")")
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Fault) Unwrap() error { return f.Err }

// With attaches an identifying context value and returns f.
func (f *Fault) With(key, value string) *Fault {
	if value == "" {
		return f
	}
	if f.Context == nil {
		f.Context = make(map[string]string)
	}
	f.Context[key] = value
	return f
}

// ContextKeys returns the context keys in sorted order.
func (f *Fault) ContextKeys() []string {
	keys := make([]string, 0, len(f.Context))
	for k := range f.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parse builds a ParseFailure.
func Parse(op string, err error) *Fault {
	return &Fault{Kind: ParseFailure, Op: op, Message: "model response could not be parsed", Err: err}
}

// Validation builds a ValidationFailure naming the offending fields.
func Validation(op string, fields ...string) *Fault {
	return &Fault{Kind: ValidationFailure, Op: op, Message: "record does not match expected schema", Fields: fields}
}

// Collaborator builds a CollaboratorFailure wrapping err.
func Collaborator(op string, err error) *Fault {
	return &Fault{Kind: CollaboratorFailure, Op: op, Err: err}
}

// Input builds an InputFailure with a human-readable message.
func Input(op, format string, args ...any) *Fault {
	return &Fault{Kind: InputFailure, Op: op, Message: fmt.Sprintf(format, args...)}
}

// As extracts the Fault carried by err.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the kind of the Fault in err's chain, or "" when there is
// none.
func KindOf(err error) Kind {
	if f, ok := As(err); ok {
		return f.Kind
	}
	return ""
}

// Is reports whether err carries a Fault of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
