// Package merge combines model-proposed updates with the current record.
package merge

import (
	"github.com/bizmatters/deviation-service/internal/record"
)

// Option adjusts how Merge treats particular fields.
type Option func(*options)

type options struct {
	unionLists map[string]bool
}

// WithListUnion makes the named top-level list fields accumulate: items of
// the update are appended to the base list unless already present.
func WithListUnion(keys ...string) Option {
	return func(o *options) {
		if o.unionLists == nil {
			o.unionLists = make(map[string]bool, len(keys))
		}
		for _, k := range keys {
			o.unionLists[k] = true
		}
	}
}

// Merge returns a deep copy of base with updates applied key by key. Nested
// objects present on both sides merge recursively; every other value in
// updates replaces the base value wholesale. Keys only in base are kept and
// keys only in updates are added. Neither argument is modified.
func Merge(base, updates *record.Record, opts ...Option) *record.Record {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	out := base.Clone()
	updates.Each(func(key string, next record.Value) bool {
		current, exists := out.Get(key)
		out.Set(key, mergeValue(current, exists, next, o.unionLists[key]))
		return true
	})
	return out
}

func mergeValue(current record.Value, exists bool, next record.Value, union bool) record.Value {
	if !exists {
		return next.Clone()
	}
	if cur, ok := current.Record(); ok {
		if upd, ok := next.Record(); ok {
			return record.Object(Merge(cur, upd))
		}
	}
	if union && current.Kind() == record.KindList && next.Kind() == record.KindList {
		return unionList(current.Items(), next.Items())
	}
	return next.Clone()
}

func unionList(base, extra []record.Value) record.Value {
	items := make([]record.Value, 0, len(base)+len(extra))
	for _, item := range base {
		items = append(items, item.Clone())
	}
	for _, candidate := range extra {
		seen := false
		for _, item := range items {
			if item.Equal(candidate) {
				seen = true
				break
			}
		}
		if !seen {
			items = append(items, candidate.Clone())
		}
	}
	return record.List(items...)
}
