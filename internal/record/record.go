// Package record holds the structured documents that flow between turns of a
// deviation workflow: an ordered mapping from field name to Value.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is an ordered field-name to Value mapping. A nil *Record reads as
// empty.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil || r.fields == nil {
		return Value{}, false
	}
	return r.fields.Get(key)
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// GetString returns the string stored under key, or "" when absent or not a
// string.
func (r *Record) GetString(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.Text()
	return s
}

// Set stores v under key. Existing keys keep their position.
func (r *Record) Set(key string, v Value) *Record {
	if r.fields == nil {
		r.fields = orderedmap.New[string, Value]()
	}
	r.fields.Set(key, v)
	return r
}

// Delete removes key.
func (r *Record) Delete(key string) {
	if r == nil || r.fields == nil {
		return
	}
	r.fields.Delete(key)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	if r.Len() == 0 {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every field in order until fn returns false.
func (r *Record) Each(fn func(key string, v Value) bool) {
	if r.Len() == 0 {
		return
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a deep copy. Mutating the copy never affects r.
func (r *Record) Clone() *Record {
	out := New()
	r.Each(func(key string, v Value) bool {
		out.Set(key, v.Clone())
		return true
	})
	return out
}

// Equal reports whether both records hold the same keys with deeply equal
// values, ignoring order.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	equal := true
	r.Each(func(key string, v Value) bool {
		ov, ok := o.Get(key)
		if !ok || !v.Equal(ov) {
			equal = false
		}
		return equal
	})
	return equal
}

// MarshalJSON encodes r as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into r, keeping document order.
func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// Indent renders r as two-space indented JSON, the form embedded in prompts.
func (r *Record) Indent() string {
	compact, err := r.MarshalJSON()
	if err != nil {
		return "{}"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return string(compact)
	}
	return out.String()
}

func (r *Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	first := true
	var encErr error
	r.Each(func(key string, v Value) bool {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := encodeString(buf, key); err != nil {
			encErr = err
			return false
		}
		buf.WriteByte(':')
		if err := v.encode(buf); err != nil {
			encErr = fmt.Errorf("field %q: %w", key, err)
			return false
		}
		return true
	})
	if encErr != nil {
		return encErr
	}
	buf.WriteByte('}')
	return nil
}

// FromAny converts plain Go values (as produced by encoding/json into any) to
// a Value. Map keys are sorted because Go maps carry no order.
func FromAny(in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Record:
		return Object(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case int:
		return Number(fmt.Sprintf("%d", t)), nil
	case int64:
		return Number(fmt.Sprintf("%d", t)), nil
	case float64:
		raw, err := json.Marshal(t)
		if err != nil {
			return Value{}, fmt.Errorf("failed to encode number: %w", err)
		}
		return Number(string(raw)), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return List(items...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		rec, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Object(rec), nil
	default:
		return Value{}, fmt.Errorf("unsupported type %T", in)
	}
}

// FromMap converts a Go map to a record with keys in sorted order.
func FromMap(m map[string]any) (*Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := New()
	for _, k := range keys {
		v, err := FromAny(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out.Set(k, v)
	}
	return out, nil
}

// MustFromMap is FromMap for literals in tests and fixtures.
func MustFromMap(m map[string]any) *Record {
	r, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return r
}
