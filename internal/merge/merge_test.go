package merge

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/deviation-service/internal/record"
)

func mustParse(t *testing.T, s string) *record.Record {
	t.Helper()
	rec, err := record.ParseString(s)
	require.NoError(t, err)
	return rec
}

func TestMerge_NestedObjectsMergeRecursively(t *testing.T) {
	base := mustParse(t, `{"x": {"a": 1, "b": 2}, "y": "keep"}`)
	upd := mustParse(t, `{"x": {"a": 9}}`)

	got := Merge(base, upd)

	want := mustParse(t, `{"x": {"a": 9, "b": 2}, "y": "keep"}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_Table(t *testing.T) {
	tests := []struct {
		name string
		base string
		upd  string
		want string
	}{
		{
			name: "scalar replaces",
			base: `{"title": "old", "who": "ops"}`,
			upd:  `{"title": "new"}`,
			want: `{"title": "new", "who": "ops"}`,
		},
		{
			name: "list replaces wholesale",
			base: `{"fishbone_diagram": [{"machine": ["wear"]}, {"people": ["training"]}]}`,
			upd:  `{"fishbone_diagram": [{"method": ["sop"]}]}`,
			want: `{"fishbone_diagram": [{"method": ["sop"]}]}`,
		},
		{
			name: "type mismatch replaces",
			base: `{"capa": {"correction": "x"}}`,
			upd:  `{"capa": "flattened"}`,
			want: `{"capa": "flattened"}`,
		},
		{
			name: "new key added",
			base: `{"a": 1}`,
			upd:  `{"b": {"c": null}}`,
			want: `{"a": 1, "b": {"c": null}}`,
		},
		{
			name: "deeply nested",
			base: `{"rca": {"FishboneAnalysis": {"machine": "m", "people": "p"}, "FiveWhy": "w"}}`,
			upd:  `{"rca": {"FishboneAnalysis": {"people": "p2"}}}`,
			want: `{"rca": {"FishboneAnalysis": {"machine": "m", "people": "p2"}, "FiveWhy": "w"}}`,
		},
		{
			name: "empty values replace",
			base: `{"title": "old", "capa": "ok", "who": ["ops"]}`,
			upd:  `{"title": "", "capa": null, "who": []}`,
			want: `{"title": "", "capa": null, "who": []}`,
		},
		{
			name: "empty update keeps base",
			base: `{"a": "b"}`,
			upd:  `{}`,
			want: `{"a": "b"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(mustParse(t, tt.base), mustParse(t, tt.upd))
			want := mustParse(t, tt.want)
			assert.True(t, want.Equal(got), "got %s", got.Indent())
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := mustParse(t, `{"x": {"a": 1}, "l": [1]}`)
	upd := mustParse(t, `{"x": {"b": 2}, "l": [2]}`)
	baseCopy, updCopy := base.Clone(), upd.Clone()

	out := Merge(base, upd)
	x, _ := out.Get("x")
	inner, _ := x.Record()
	inner.Set("a", record.String("mutated"))

	assert.True(t, baseCopy.Equal(base))
	assert.True(t, updCopy.Equal(upd))
}

func TestMerge_ListUnion(t *testing.T) {
	base := mustParse(t, `{"quality_review": [{"aspect": "content", "comment": "ok"}], "other": [1]}`)
	upd := mustParse(t, `{"quality_review": [{"aspect": "content", "comment": "ok"}, {"aspect": "template", "comment": "fine"}], "other": [2]}`)

	got := Merge(base, upd, WithListUnion("quality_review"))

	qr, _ := got.Get("quality_review")
	require.Len(t, qr.Items(), 2)
	other, _ := got.Get("other")
	assert.Equal(t, "[2]", other.String())
}

// Randomised check of the preservation and application guarantees.
func TestMerge_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 200; i++ {
		base := randomRecord(rng, 3)
		upd := randomRecord(rng, 2)

		got := Merge(base, upd)

		base.Each(func(key string, v record.Value) bool {
			if !upd.Has(key) {
				gv, ok := got.Get(key)
				require.True(t, ok, "key %q dropped", key)
				assert.True(t, v.Equal(gv), "key %q changed", key)
			}
			return true
		})
		upd.Each(func(key string, v record.Value) bool {
			gv, ok := got.Get(key)
			require.True(t, ok)
			if v.Kind() != record.KindObject {
				assert.True(t, v.Equal(gv), "key %q not applied", key)
			}
			return true
		})
		assert.GreaterOrEqual(t, got.Len(), base.Len())
	}
}

func randomRecord(rng *rand.Rand, depth int) *record.Record {
	out := record.New()
	n := rng.IntN(5)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%d", rng.IntN(6))
		out.Set(key, randomValue(rng, depth))
	}
	return out
}

func randomValue(rng *rand.Rand, depth int) record.Value {
	switch rng.IntN(4) {
	case 0:
		return record.String(fmt.Sprintf("s%d", rng.IntN(3)))
	case 1:
		return record.List(record.Number(fmt.Sprintf("%d", rng.IntN(3))))
	case 2:
		if depth > 0 {
			return record.Object(randomRecord(rng, depth-1))
		}
		return record.Null()
	default:
		return record.Bool(rng.IntN(2) == 0)
	}
}

func TestDriftAndChanged(t *testing.T) {
	base := mustParse(t, `{"title": "a", "who": "b", "what": "c"}`)
	upd := mustParse(t, `{"title": "a2", "headline": "h"}`)

	d := Drift(base, upd)
	assert.Equal(t, []string{"headline"}, d.Added)
	assert.Equal(t, []string{"who", "what"}, d.Missing)
	assert.False(t, d.None())

	merged := Merge(base, upd)
	assert.Equal(t, []string{"title", "headline"}, Changed(base, merged))
	assert.True(t, Drift(base, base).None())
}
