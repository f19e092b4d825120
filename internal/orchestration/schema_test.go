package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaValidate(t *testing.T) {
	schema := Schema{
		text("title"),
		list("items"),
		optional(text("note")),
		object("capa", text("correction")),
		anyOf("extra"),
	}

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"complete", `{"title": "t", "items": [], "capa": {"correction": "c"}, "extra": 3}`, nil},
		{"numbers count as text", `{"title": 12, "items": [], "capa": {"correction": true}, "extra": null}`, nil},
		{"missing and wrong kinds", `{"title": [], "items": "x", "capa": {}}`, []string{"title", "items", "capa.correction", "extra"}},
		{"null text", `{"title": null, "items": [], "capa": {"correction": "c"}, "extra": ""}`, []string{"title"}},
		{"object expected", `{"title": "t", "items": [], "capa": "none", "extra": ""}`, []string{"capa"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.Validate(mustRecord(t, tt.in)))
		})
	}
}

func TestSchemaTemplate(t *testing.T) {
	got := investigationMinute.Template()
	assert.Empty(t, investigationMinute.Validate(got))
	assert.Equal(t, []string{"background", "discussion", "root_cause_analysis", "final_assessment", "historic_review", "capa"}, got.Keys())
	assert.Empty(t, qtaReviewMinute.Template().GetString("change_summary"))
	assert.False(t, qtaReviewMinute.Template().Has("change_summary"))
}
