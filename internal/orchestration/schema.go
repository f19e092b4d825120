package orchestration

import (
	"github.com/bizmatters/deviation-service/internal/record"
)

// Field describes one expected key of a record. KindNull accepts a present
// value of any kind.
type Field struct {
	Name     string
	Kind     record.Kind
	Optional bool
	// Fields describes the keys of an object field. Empty means any object.
	Fields []Field
}

// Schema is the set of fields a stage must produce.
type Schema []Field

func text(name string) Field { return Field{Name: name, Kind: record.KindString} }

func list(name string) Field { return Field{Name: name, Kind: record.KindList} }

func object(name string, fields ...Field) Field {
	return Field{Name: name, Kind: record.KindObject, Fields: fields}
}

func optional(f Field) Field {
	f.Optional = true
	return f
}

// Validate returns the dotted paths of fields that are missing or hold the
// wrong kind of value. A nil result means rec conforms.
func (s Schema) Validate(rec *record.Record) []string {
	return s.validate("", rec)
}

func (s Schema) validate(prefix string, rec *record.Record) []string {
	var bad []string
	for _, f := range s {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		v, ok := rec.Get(f.Name)
		if !ok || (v.Kind() == record.KindNull && f.Kind != record.KindNull) {
			if !f.Optional {
				bad = append(bad, path)
			}
			continue
		}
		if !accepts(f.Kind, v.Kind()) {
			bad = append(bad, path)
			continue
		}
		if f.Kind == record.KindObject && len(f.Fields) > 0 {
			nested, _ := v.Record()
			bad = append(bad, Schema(f.Fields).validate(path, nested)...)
		}
	}
	return bad
}

// Text fields also accept numbers and booleans, which models emit for
// values such as counts or yes/no answers.
func accepts(want, got record.Kind) bool {
	if want == got || want == record.KindNull {
		return true
	}
	return want == record.KindString && (got == record.KindNumber || got == record.KindBool)
}

// Template returns an empty record shaped like s, used to seed stages whose
// caller starts without a record.
func (s Schema) Template() *record.Record {
	out := record.New()
	for _, f := range s {
		if f.Optional {
			continue
		}
		switch f.Kind {
		case record.KindString, record.KindNull:
			out.Set(f.Name, record.String(""))
		case record.KindList:
			out.Set(f.Name, record.List())
		case record.KindObject:
			out.Set(f.Name, record.Object(Schema(f.Fields).Template()))
		}
	}
	return out
}
