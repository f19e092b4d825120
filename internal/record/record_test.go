package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesFieldOrder(t *testing.T) {
	rec, err := ParseString(`{"zeta": 1, "alpha": "a", "mid": {"y": true, "x": null}}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, rec.Keys())

	mid, ok := rec.Get("mid")
	require.True(t, ok)
	nested, ok := mid.Record()
	require.True(t, ok)
	assert.Equal(t, []string{"y", "x"}, nested.Keys())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "empty", in: "", want: ErrInvalidJSON},
		{name: "truncated", in: `{"a": `, want: ErrInvalidJSON},
		{name: "array", in: `[1,2]`, want: ErrNotObject},
		{name: "scalar", in: `"text"`, want: ErrNotObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	in := `{"title":"Line 5 <weight> & checks","count":12.50,"ok":false,"tags":["a","b"],"capa":{"correction":"","level":null}}`
	rec, err := ParseString(in)
	require.NoError(t, err)

	out, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	orig := MustFromMap(map[string]any{
		"capa": map[string]any{"correction": "retrain"},
		"list": []any{"one"},
	})
	cp := orig.Clone()

	capa, _ := cp.Get("capa")
	inner, _ := capa.Record()
	inner.Set("correction", String("changed"))
	cp.Set("list", List(String("two")))

	origCapa, _ := orig.Get("capa")
	origInner, _ := origCapa.Record()
	assert.Equal(t, "retrain", origInner.GetString("correction"))

	origList, _ := orig.Get("list")
	require.Len(t, origList.Items(), 1)
	assert.Equal(t, "one", origList.Items()[0].String())
}

func TestRecord_Equal(t *testing.T) {
	a, err := ParseString(`{"a": 1, "b": {"c": [1, "x"]}}`)
	require.NoError(t, err)
	b, err := ParseString(`{"b": {"c": [1, "x"]}, "a": 1}`)
	require.NoError(t, err)
	c, err := ParseString(`{"a": 1, "b": {"c": ["x", 1]}}`)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestNilRecord_ReadsAsEmpty(t *testing.T) {
	var r *Record
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Keys())
	_, ok := r.Get("x")
	assert.False(t, ok)
	assert.True(t, r.Equal(New()))
}

func TestValue_StringAndEmpty(t *testing.T) {
	obj := MustFromMap(map[string]any{"yes_no": "No", "level": nil})

	assert.Equal(t, "plain", String("plain").String())
	assert.Equal(t, `{"level":null,"yes_no":"No"}`, Object(obj).String())
	assert.True(t, String("  ").IsEmpty())
	assert.True(t, List().IsEmpty())
	assert.False(t, Bool(false).IsEmpty())
}

func TestRecord_Indent(t *testing.T) {
	rec := New().Set("background", String("text"))
	assert.Equal(t, "{\n  \"background\": \"text\"\n}", rec.Indent())
}
