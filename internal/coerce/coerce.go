// Package coerce forces loosely formatted model output into fixed,
// label-per-line text formats.
package coerce

import (
	"strings"

	"github.com/bizmatters/deviation-service/internal/record"
)

// FieldSpec is one line of a strict text format: its label, including the
// trailing colon, and the value used when the model gave none.
type FieldSpec struct {
	Label   string
	Default string
}

// Key returns the label without its trailing colon.
func (f FieldSpec) Key() string {
	return strings.TrimSuffix(f.Label, ":")
}

const placeholder = "not specified"

const noImpact = `{"yes_no": "No", "level": null}`

// ImpactAssessmentFields is the eight-line impact assessment format.
var ImpactAssessmentFields = []FieldSpec{
	{Label: "DEVIATION_TRIAGE:", Default: "No"},
	{Label: "PRODUCT_QUALITY:", Default: noImpact},
	{Label: "PATIENT_SAFETY:", Default: noImpact},
	{Label: "REGULATORY_IMPACT:", Default: noImpact},
	{Label: "VALIDATION_IMPACT:", Default: "No"},
	{Label: "CUSTOMER_NOTIFICATION:", Default: "No"},
	{Label: "REVIEW_QTA:", Default: "Based on available information, QTA review not required."},
	{Label: "CRITICALITY:", Default: "Minor"},
}

// IncidentAnalysisBanner opens the strict incident analysis format.
const IncidentAnalysisBanner = "===ANALYSIS START==="

// IncidentAnalysisFields is the incident analysis format that follows the
// banner.
var IncidentAnalysisFields = []FieldSpec{
	{Label: "INCIDENT_TITLE:", Default: "Not specified"},
	{Label: "BACKGROUND:", Default: "Not specified"},
	{Label: "WHO:", Default: "Not specified"},
	{Label: "WHAT:", Default: "Not specified"},
	{Label: "WHERE:", Default: "Not specified"},
	{Label: "IMMEDIATE_ACTION:", Default: "Not specified"},
	{Label: "QUALITY_CONCERNS:", Default: "Not specified"},
	{Label: "QUALITY_CONTROLS:", Default: "Not specified"},
	{Label: "RCA_TOOL:", Default: "Not specified"},
	{Label: "EXPECTED_INTERIM_ACTION:", Default: "Not specified"},
	{Label: "CAPA:", Default: "Not specified"},
	{Label: "ATTENDEES:", Default: "Not specified"},
}

// Coerce returns exactly one "LABEL: value" line per field, in field order.
// Values are taken from lines of raw that start with the label
// (case-insensitive, last occurrence wins); '===' banners are ignored; blank
// or "not specified" values fall back to the field default.
func Coerce(raw string, fields []FieldSpec) string {
	return render(Extract(raw, fields), fields)
}

// Extract maps each label found in raw to its trimmed value.
func Extract(raw string, fields []FieldSpec) map[string]string {
	found := make(map[string]string, len(fields))
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "===") {
			continue
		}
		upper := strings.ToUpper(line)
		for _, f := range fields {
			if strings.HasPrefix(upper, strings.ToUpper(f.Label)) {
				found[f.Label] = strings.TrimSpace(line[len(f.Label):])
				break
			}
		}
	}
	return found
}

// FromRecord renders a parsed record in the strict format. Record keys are
// matched against labels case-insensitively; objects and lists are written as
// compact JSON.
func FromRecord(rec *record.Record, fields []FieldSpec) string {
	values := make(map[string]string, len(fields))
	rec.Each(func(key string, v record.Value) bool {
		for _, f := range fields {
			if strings.EqualFold(key, f.Key()) {
				values[f.Label] = flatten(v.String())
			}
		}
		return true
	})
	return render(values, fields)
}

// ToRecord reads strict text back into a record keyed by label, with every
// field present.
func ToRecord(text string, fields []FieldSpec) *record.Record {
	values := Extract(text, fields)
	out := record.New()
	for _, f := range fields {
		out.Set(f.Key(), record.String(valueOrDefault(values[f.Label], f)))
	}
	return out
}

func render(values map[string]string, fields []FieldSpec) string {
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = f.Label + " " + valueOrDefault(values[f.Label], f)
	}
	return strings.Join(lines, "\n")
}

func valueOrDefault(v string, f FieldSpec) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, placeholder) {
		return f.Default
	}
	return v
}

// Single-line values keep each field on its own line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
