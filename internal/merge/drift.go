package merge

import (
	"github.com/bizmatters/deviation-service/internal/record"
)

// KeyDrift describes how an update's top-level key set differs from the
// base. It is informational; merging proceeds regardless.
type KeyDrift struct {
	Added   []string `json:"added,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// None reports whether both key sets match.
func (d KeyDrift) None() bool {
	return len(d.Added) == 0 && len(d.Missing) == 0
}

// Drift compares the top-level keys of base and updates.
func Drift(base, updates *record.Record) KeyDrift {
	var d KeyDrift
	for _, k := range updates.Keys() {
		if !base.Has(k) {
			d.Added = append(d.Added, k)
		}
	}
	for _, k := range base.Keys() {
		if !updates.Has(k) {
			d.Missing = append(d.Missing, k)
		}
	}
	return d
}

// Changed lists the top-level keys of after whose values differ from before,
// including keys that before lacks.
func Changed(before, after *record.Record) []string {
	var keys []string
	after.Each(func(key string, v record.Value) bool {
		prev, ok := before.Get(key)
		if !ok || !prev.Equal(v) {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}
