package orchestration

import (
	"context"
	"strings"

	"github.com/bizmatters/deviation-service/internal/record"
	"github.com/bizmatters/deviation-service/internal/redline"
)

var fishbone = object("FishboneAnalysis",
	anyOf("people"), anyOf("method"), anyOf("machine"),
	anyOf("material"), anyOf("environment"), anyOf("measurement"),
)

var rootCause = object("root_cause_analysis", fishbone, anyOf("FiveWhy"))

// investigationMinute is the record built up during the meeting.
var investigationMinute = Schema{
	text("background"),
	object("discussion",
		text("discuss_process"), text("equipment"), text("environment"),
		text("documentation_is_adequate"), text("external_communication"),
		text("personnel_training"), text("equipment_qualification"),
	),
	rootCause,
	object("final_assessment",
		text("patient_safety"), text("product_quality"), text("compliance_impact"),
		text("validation_impact"), text("regulatory_impact"),
	),
	text("historic_review"),
	object("capa",
		text("correction"), text("interim_action"), text("corrective_action"), text("preventive_action"),
	),
}

// finalReport is the nine-section report shared by the investigation and
// quality review final stages.
var finalReport = Schema{
	text("background"),
	text("immediate_actions"),
	anyOf("discussion"),
	rootCause,
	list("fishbone_diagram"),
	text("historical_review"),
	anyOf("capa"),
	anyOf("impact_assessment"),
	text("conclusion"),
}

// anyOf accepts a present value of any kind.
func anyOf(name string) Field { return Field{Name: name, Kind: record.KindNull} }

const finalReportShape = `{
  "background": "...",
  "immediate_actions": "...",
  "discussion": "...",
  "root_cause_analysis": {
    "FishboneAnalysis": {"machine": "...", "material": "...", "people": "...", "method": "...", "measurement": "...", "environment": "..."},
    "FiveWhy": ["why 1", "why 2", "why 3", "why 4", "why 5"]
  },
  "fishbone_diagram": [{"machine": ["reason"]}, {"people": ["reason"]}],
  "historical_review": "...",
  "capa": "...",
  "impact_assessment": "...",
  "conclusion": "..."
}`

func investigationWorkflow() *Workflow {
	return &Workflow{
		Name: WorkflowInvestigation,
		stages: map[Stage]stageSpec{
			StageInit: {
				system: investigatorSystem,
				prompt: investigationInitPrompt,
				schema: investigationMinute,
				needs:  needSource,
				seed:   true,
			},
			StagePerMinute: {
				system: investigatorSystem,
				prompt: investigationMinutePrompt,
				schema: investigationMinute,
				needs:  needTranscript,
				seed:   true,
			},
			StageFinal: {
				system:  investigatorSystem,
				prompt:  investigationFinalPrompt,
				schema:  finalReport,
				redline: redline.Track,
				needs:   needRecord,
			},
			StageRepeat: {
				system:  investigatorSystem,
				prompt:  repeatPrompt("investigation report", finalReportShape),
				schema:  finalReport,
				redline: redline.Preserve,
				needs:   needRecord | needInstruction,
			},
			StageModify: {
				system: modifySystem("investigation"),
				prompt: modifyPrompt("Investigation"),
				needs:  needRecord | needInstruction,
			},
		},
	}
}

func investigationInitPrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Start a deviation investigation record from the material below.\n\n")
	if base.Len() > 0 {
		recordSection(&b, "EXISTING BACKGROUND DETAILS AND IMPACT ASSESSMENT", base)
	}
	documentsSection(&b, "DOCUMENT INFORMATION", req.Documents)
	if t := strings.TrimSpace(req.Transcript); t != "" {
		section(&b, "TRANSCRIPTION", truncate(t))
	}
	section(&b, "OUTPUT FORMAT", investigationMinute.Template().Indent())
	b.WriteString("Fill every field you can support from the material and leave the rest as empty strings. ")
	b.WriteString(jsonOnly)
	return b.String()
}

func investigationMinutePrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Update the running investigation record with the latest minute of the investigation meeting.\n\n")
	recordSection(&b, "CURRENT INVESTIGATION RECORD", base)
	section(&b, "NEW TRANSCRIPT FRAGMENT", req.Transcript)
	b.WriteString(perMinuteRules)
	b.WriteString("\n")
	b.WriteString(jsonOnly)
	return b.String()
}

func investigationFinalPrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Write the final deviation investigation report from the accumulated investigation record.\n\n")
	recordSection(&b, "INVESTIGATION RECORD", base)
	if t := strings.TrimSpace(req.Transcript); t != "" {
		section(&b, "MEETING TRANSCRIPT", truncate(t))
	}
	section(&b, "OUTPUT FORMAT", finalReportShape)
	b.WriteString("fishbone_diagram lists at most 2 reasons per category and each reason is at most 2 words.\n")
	b.WriteString(trackRule)
	b.WriteString("\n")
	b.WriteString(jsonOnly)
	return b.String()
}

// repeatPrompt asks for a revision of a finished document without adding
// change tracking.
func repeatPrompt(document, shape string) func(*record.Record, Request) string {
	return func(base *record.Record, req Request) string {
		var b strings.Builder
		b.WriteString("Revise the existing " + document + " according to the user's changes.\n\n")
		recordSection(&b, "EXISTING "+strings.ToUpper(document), base)
		section(&b, "USER CHANGES", req.Instruction)
		if t := strings.TrimSpace(req.Transcript); t != "" {
			section(&b, "TRANSCRIPTION", truncate(t))
		}
		section(&b, "OUTPUT FORMAT", shape)
		b.WriteString("Change only what the user asks for and keep every other value verbatim.\n")
		b.WriteString(preserveRule)
		b.WriteString("\n")
		b.WriteString(jsonOnly)
		return b.String()
	}
}

// ModifyInvestigation applies one instruction to an investigation document
// given as JSON or labelled text.
func (s *Service) ModifyInvestigation(ctx context.Context, investigation string, d Directive, userID string) (*Outcome, error) {
	const op = "investigation.modify"

	base, err := inputRecord(op, "investigation_response", investigation)
	if err != nil {
		return nil, err
	}
	return s.modifyWith(ctx, op, WorkflowInvestigation, base, d, userID)
}
