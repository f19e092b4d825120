package orchestration

import (
	"strings"

	"github.com/bizmatters/deviation-service/internal/merge"
	"github.com/bizmatters/deviation-service/internal/record"
)

// BackgroundFields are the background details gathered while a deviation
// is initiated, in the order they are reported back to the user.
var BackgroundFields = []string{
	"Who", "What", "Where", "Immediate_Action", "Quality_Concerns",
	"Quality_Controls", "RCA_tool", "Expected_Interim_Action", "CAPA",
}

var impactAreas = []string{"Product_Quality", "Patient_Safety", "Regulatory_Impact", "Validation_Impact"}

func backgroundDetails() Field {
	fields := make([]Field, len(BackgroundFields))
	for i, name := range BackgroundFields {
		fields[i] = text(name)
	}
	return object("background_details", fields...)
}

func initiationImpact() Field {
	fields := make([]Field, len(impactAreas))
	for i, name := range impactAreas {
		fields[i] = object(name, text("impact"), text("severity"))
	}
	return object("impact_assessment", fields...)
}

var initiationMinute = Schema{
	text("incident_title"),
	backgroundDetails(),
	list("background_attendee"),
	initiationImpact(),
	text("criticality"),
}

// initiationReport is the five-section formal incident report.
var initiationReport = Schema{
	text("incident_title"),
	text("background"),
	text("meeting_attendees"),
	text("impact_assessment"),
	text("criticality"),
}

const initiationReportShape = `{
  "incident_title": "1. Incident Title: [Title]\nDeviation ID: [To be assigned]\nDate/Time of Occurrence: [Date], [Time] hrs\nLocation: [Location]\nProduct: [Product Name]\nDosage Form: [Form]",
  "background": "2. Background\n[What happened]\n\nPersonnel involved include [names]\n\nImmediate Action\n[...]\n\nQuality Concerns/Controls\n[...]\n\nRCA Tools\n[...]\n\nExpected Interim action\n[...]\n\nCAPA\n[...]",
  "meeting_attendees": "3. Meeting Attendees\n[All attendee names]",
  "impact_assessment": "4. Impact Assessment\n[Impact on product quality, patient safety, validation and regulatory compliance]",
  "criticality": "5. Criticality\nCriticality: [Minor/Major]\n[Rationale]"
}`

const initiationSystem = "You are an expert AI assistant for pharmaceutical quality management and deviation reporting."

func initiationWorkflow() *Workflow {
	return &Workflow{
		Name: WorkflowInitiation,
		stages: map[Stage]stageSpec{
			StagePerMinute: {
				system: initiationSystem,
				prompt: initiationMinutePrompt,
				schema: initiationMinute,
				needs:  needTranscript,
				seed:   true,
				merge:  []merge.Option{merge.WithListUnion("background_attendee")},
				check:  checkInitiationMinute,
			},
			StageFinal: {
				system: initiationSystem,
				prompt: initiationFinalPrompt,
				schema: initiationReport,
				needs:  needTranscript,
			},
			StageModify: {
				system: modifySystem("INITIATION REPORT"),
				prompt: modifyPrompt("Initiation Report"),
				schema: initiationReport,
				needs:  needRecord | needInstruction,
			},
		},
	}
}

func initiationMinutePrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Extract structured deviation initiation details from the meeting transcript.\n\n")
	recordSection(&b, "PREVIOUSLY EXTRACTED DETAILS", base)
	section(&b, "TRANSCRIPT SO FAR", truncate(req.Transcript))
	b.WriteString(`FIELDS:
- "incident_title": keep the existing title unless the transcript names a different one; otherwise generate one.
- "background_details": an object with the keys "Who", "What", "Where", "Immediate_Action", "Quality_Concerns", "Quality_Controls", "RCA_tool", "Expected_Interim_Action" and "CAPA". Use "" for anything not mentioned.
- "background_attendee": attendee names; [] when none are named.
- "impact_assessment": an object with "Product_Quality", "Patient_Safety", "Regulatory_Impact" and "Validation_Impact", each {"impact": "Yes"|"No", "severity": "Low"|"Medium"|"High"|""}. Severity is "" when impact is "No".
- "criticality": "Major" or "Minor", or "" when it is not stated.

Correct obvious transcription errors. Update prior details when the transcript contradicts or improves them.
`)
	b.WriteString(jsonOnly)
	return b.String()
}

func initiationFinalPrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Generate a formal incident report from the initiation meeting.\n\n")
	if base.Len() > 0 {
		recordSection(&b, "DETAILS GATHERED DURING THE MEETING", base)
	}
	section(&b, "TRANSCRIBED TEXT", truncate(req.Transcript))
	section(&b, "OUTPUT FORMAT", initiationReportShape)
	b.WriteString("Fill every section. Where information is missing, write \"Not discussed\".\n")
	b.WriteString(jsonOnly)
	return b.String()
}

// checkInitiationMinute enforces the Yes/No and severity vocabularies. Blank
// values are allowed while the meeting is still running.
func checkInitiationMinute(rec *record.Record) []string {
	var bad []string
	ia, _ := rec.Get("impact_assessment")
	areas, _ := ia.Record()
	for _, area := range impactAreas {
		v, _ := areas.Get(area)
		item, _ := v.Record()
		impact := item.GetString("impact")
		severity := item.GetString("severity")
		if !oneOf(impact, "", "Yes", "No") {
			bad = append(bad, "impact_assessment."+area+".impact")
		}
		if !oneOf(severity, "", "Low", "Medium", "High") || (impact == "No" && severity != "") {
			bad = append(bad, "impact_assessment."+area+".severity")
		}
	}
	if !oneOf(rec.GetString("criticality"), "", "Major", "Minor") {
		bad = append(bad, "criticality")
	}
	return bad
}

func oneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// CheckBackground names the background details that are still blank, as a
// sentence that can be shown to the user directly. Keys outside
// BackgroundFields are reported after them, in record order.
func CheckBackground(details *record.Record) string {
	var missing []string
	blank := func(key string) {
		v, ok := details.Get(key)
		if !ok || v.IsEmpty() {
			missing = append(missing, strings.ReplaceAll(key, "_", " "))
		}
	}
	known := make(map[string]bool, len(BackgroundFields))
	for _, k := range BackgroundFields {
		known[k] = true
		if details.Has(k) {
			blank(k)
		}
	}
	for _, k := range details.Keys() {
		if !known[k] {
			blank(k)
		}
	}

	switch len(missing) {
	case 0:
		return "All background details have been provided."
	case 1:
		return "You haven't mentioned " + missing[0] + "."
	case 2:
		return "You haven't talked about " + missing[0] + " and " + missing[1] + "."
	default:
		last := len(missing) - 1
		return "You haven't talked about " + strings.Join(missing[:last], ", ") + ", and " + missing[last] + "."
	}
}
