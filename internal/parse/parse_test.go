package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/deviation-service/internal/record"
)

func TestExtractJSON_FencedWithProse(t *testing.T) {
	original := `{"background": "Line 5", "capa": {"correction": "retrain", "items": [1, 2]}}`
	raw := "Here is the updated document:\n```json\n" + original + "\n```\nLet me know if anything else is needed."

	got, ok := ExtractJSON(raw)
	require.True(t, ok)

	want, err := record.ParseString(original)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractJSON mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractJSON_Cases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "bare fence",
			raw:  "```\n{\"a\": \"b\"}\n```",
			want: map[string]any{"a": "b"},
		},
		{
			name: "brace span inside prose",
			raw:  `Sure! {"title": "Weight check failure"} hope this helps`,
			want: map[string]any{"title": "Weight check failure"},
		},
		{
			name: "raw newline inside string",
			raw:  "{\"background\": \"line one\nline two\"}",
			want: map[string]any{"background": "line one\nline two"},
		},
		{
			name: "salvage pairs from truncated object",
			raw:  "{\"title\": \"New \\\"quoted\\\" title\", \"what\": \"multi\nline\", \"capa\": [broken",
			want: map[string]any{"title": `New "quoted" title`, "what": "multi\nline"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.raw)
			require.True(t, ok)
			want := record.MustFromMap(tt.want)
			assert.True(t, want.Equal(got), "got %s", got.Indent())
		})
	}
}

func TestExtractJSON_MalformedReturnsNothing(t *testing.T) {
	got, ok := ExtractJSON("Sure! Here's the update: {bad json")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestExtractJSON_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"{",
		"}",
		"}{",
		"{{{{",
		"```",
		"```json",
		`"\`,
		"\xff\xfe{\"a\": \"\xff\"}",
		"{\"a\": \"\xc3\x28\"",
		`{"a": [1, 2, {"b": }]}`,
		"null",
		"[1, 2, 3]",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			rec, ok := ExtractJSON(in)
			if ok {
				assert.NotNil(t, rec)
			}
		}, "input %q", in)
	}
}

func TestEscapeControlChars(t *testing.T) {
	in := "{\"a\": \"x\ny\t\\\"z\"}\n"
	assert.Equal(t, "{\"a\": \"x\\ny\\t\\\"z\"}\n", EscapeControlChars(in))
}

func TestStructuredText(t *testing.T) {
	text := `===ANALYSIS START===
INCIDENT_TITLE: Tablet weight deviation
WHO: Operators A and B
WHAT: Tablets below specification
found during in-process checks
- stray bullet

PRODUCT_QUALITY: {"yes_no": "Yes", "level": "High"}
CAPA: {broken
===ANALYSIS END===`

	got := StructuredText(text)

	assert.Equal(t, []string{"INCIDENT_TITLE", "WHO", "WHAT", "PRODUCT_QUALITY", "CAPA"}, got.Keys())
	assert.Equal(t, "Tablets below specification\nfound during in-process checks", got.GetString("WHAT"))
	assert.Equal(t, "{broken", got.GetString("CAPA"))

	pq, _ := got.Get("PRODUCT_QUALITY")
	nested, ok := pq.Record()
	require.True(t, ok)
	assert.Equal(t, "High", nested.GetString("level"))
}

func TestStructuredText_NoLabels(t *testing.T) {
	for _, in := range []string{"just some prose", "note: lowercase is not a label", ""} {
		got := StructuredText(in)
		assert.Equal(t, []string{"content"}, got.Keys())
		assert.Equal(t, in, got.GetString("content"))
	}
}

func TestInput(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKeys []string
	}{
		{name: "json object", raw: `{"title": "t", "who": "w"}`, wantKeys: []string{"title", "who"}},
		{name: "fenced json", raw: "```json\n{\"title\": \"t\"}\n```", wantKeys: []string{"title"}},
		{name: "strict text", raw: "INCIDENT_TITLE: t\nWHO: w", wantKeys: []string{"INCIDENT_TITLE", "WHO"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Input(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, got.Keys())
		})
	}

	_, err := Input("  \n ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
