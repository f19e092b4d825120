package redline

import (
	"github.com/bizmatters/deviation-service/internal/record"
)

// Apply returns a copy of rec with markers handled according to mode. base is
// the record the model was asked to revise; it is only consulted in Preserve
// mode, where string values are compared with the value at the same path.
func Apply(mode Mode, base, rec *record.Record) *record.Record {
	switch mode {
	case Track:
		return mapRecord(rec, nil, func(_, s string) string { return Repair(s) })
	case Preserve:
		return mapRecord(rec, base, PreserveExisting)
	default:
		return rec.Clone()
	}
}

// Check validates every string in rec and returns the dotted paths of values
// whose markers are malformed.
func Check(rec *record.Record) []string {
	var bad []string
	var walk func(prefix string, v record.Value)
	walk = func(prefix string, v record.Value) {
		switch v.Kind() {
		case record.KindString:
			s, _ := v.Text()
			if Validate(s) != nil {
				bad = append(bad, prefix)
			}
		case record.KindList:
			for _, item := range v.Items() {
				walk(prefix+"[]", item)
			}
		case record.KindObject:
			r, _ := v.Record()
			r.Each(func(key string, child record.Value) bool {
				walk(join(prefix, key), child)
				return true
			})
		}
	}
	rec.Each(func(key string, v record.Value) bool {
		walk(key, v)
		return true
	})
	return bad
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func mapRecord(rec, base *record.Record, fn func(before, after string) string) *record.Record {
	out := record.New()
	rec.Each(func(key string, v record.Value) bool {
		prev, _ := base.Get(key)
		out.Set(key, mapValue(prev, v, fn))
		return true
	})
	return out
}

func mapValue(prev, v record.Value, fn func(before, after string) string) record.Value {
	switch v.Kind() {
	case record.KindString:
		s, _ := v.Text()
		before, _ := prev.Text()
		return record.String(fn(before, s))
	case record.KindList:
		items := v.Items()
		prevItems := prev.Items()
		out := make([]record.Value, len(items))
		for i, item := range items {
			var p record.Value
			if i < len(prevItems) {
				p = prevItems[i]
			}
			out[i] = mapValue(p, item, fn)
		}
		return record.List(out...)
	case record.KindObject:
		r, _ := v.Record()
		pr, _ := prev.Record()
		return record.Object(mapRecord(r, pr, fn))
	default:
		return v.Clone()
	}
}
