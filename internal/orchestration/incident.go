package orchestration

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bizmatters/deviation-service/internal/coerce"
	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/parse"
	"github.com/bizmatters/deviation-service/internal/record"
)

const (
	minTitleChars = 5
	minWhatChars  = 10
)

func incidentWorkflow() *Workflow {
	return &Workflow{
		Name: WorkflowIncident,
		stages: map[Stage]stageSpec{
			StageInit: {
				system: investigatorSystem,
				prompt: incidentAnalysisPrompt,
				parse: func(raw string) (*record.Record, bool) {
					return parse.StructuredText(raw), true
				},
				needs: needSource,
				check: checkIncidentAnalysis,
			},
			StageModify: {
				system: modifySystem("INCIDENT"),
				prompt: modifyPrompt("Incident"),
				needs:  needRecord | needInstruction,
			},
		},
	}
}

func incidentAnalysisPrompt(_ *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("PHARMACEUTICAL INCIDENT ANALYSIS\n\n")
	b.WriteString("You are analyzing content from audio transcriptions and supporting documents for a pharmaceutical deviation investigation.\n\n")
	b.WriteString(`CRITICAL INSTRUCTIONS:
1. Take WHO, WHAT and WHERE primarily from the audio transcription.
2. Use document content to supplement and provide background.
3. Fill every field. Never leave a field blank or write "Not specified".
4. Follow the EXACT format below.

RESPONSE FORMAT (respond ONLY in this format):

`)
	b.WriteString(coerce.IncidentAnalysisBanner)
	b.WriteString("\n")
	for _, f := range coerce.IncidentAnalysisFields {
		b.WriteString(f.Label)
		b.WriteString(" [")
		b.WriteString(strings.ToLower(strings.ReplaceAll(f.Key(), "_", " ")))
		b.WriteString("]\n")
	}
	b.WriteString("===ANALYSIS END===\n\n")
	section(&b, "CONTENT TO ANALYZE", truncate(sourceText(req)))
	b.WriteString("Analyze the above content and provide your structured response.")
	return b.String()
}

func checkIncidentAnalysis(rec *record.Record) []string {
	var bad []string
	if utf8.RuneCountInString(strings.TrimSpace(rec.GetString("INCIDENT_TITLE"))) < minTitleChars {
		bad = append(bad, "INCIDENT_TITLE")
	}
	if utf8.RuneCountInString(strings.TrimSpace(rec.GetString("WHAT"))) < minWhatChars {
		bad = append(bad, "WHAT")
	}
	return bad
}

func impactWorkflow() *Workflow {
	return &Workflow{
		Name: WorkflowImpactAssessment,
		stages: map[Stage]stageSpec{
			StageInit: {
				system: investigatorSystem,
				prompt: impactPrompt,
				parse: func(raw string) (*record.Record, bool) {
					return coerce.ToRecord(raw, coerce.ImpactAssessmentFields), true
				},
				needs: needSource,
			},
		},
	}
}

// analysisKeys are looked up in a JSON prior analysis.
var analysisKeys = []string{
	"INCIDENT_TITLE", "WHO", "WHAT", "WHERE", "IMMEDIATE_ACTION", "QUALITY_CONCERNS",
	"QUALITY_CONTROLS", "RCA_TOOL", "EXPECTED_INTERIM_ACTION", "CAPA", "ATTENDEES",
}

// priorAnalysis renders a JSON analysis as "KEY: value" lines. Any other
// text is returned unchanged.
func priorAnalysis(text string) string {
	rec, err := record.ParseString(strings.TrimSpace(text))
	if err != nil {
		return text
	}
	var lines []string
	for _, k := range analysisKeys {
		v, ok := rec.Get(k)
		if !ok {
			v, ok = rec.Get(strings.ToLower(k))
		}
		if ok && !v.IsEmpty() {
			lines = append(lines, k+": "+v.String())
		}
	}
	return strings.Join(lines, "\n")
}

func impactPrompt(_ *record.Record, req Request) string {
	var b strings.Builder
	if a := strings.TrimSpace(req.Analysis); a != "" {
		section(&b, "PRIOR INCIDENT ANALYSIS (from /incident/analyze)", priorAnalysis(a))
	}
	documentsSection(&b, "EXTRACTED DOCUMENT TEXT (OCR)", req.Documents)
	if t := strings.TrimSpace(req.Transcript); t != "" {
		section(&b, "AUDIO TRANSCRIPTION", truncate(t))
	}
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("Assess the deviation's impact and respond with exactly these eight lines, in this order, and nothing else:\n")
	b.WriteString(`DEVIATION_TRIAGE: Yes|No
PRODUCT_QUALITY: {"yes_no": "Yes|No", "level": "High|Medium|Low|null"}
PATIENT_SAFETY: {"yes_no": "Yes|No", "level": "High|Medium|Low|null"}
REGULATORY_IMPACT: {"yes_no": "Yes|No", "level": "High|Medium|Low|null"}
VALIDATION_IMPACT: Yes|No
CUSTOMER_NOTIFICATION: Yes|No
REVIEW_QTA: <one or two sentences on quality technical agreement review>
CRITICALITY: Minor|Major`)
	return b.String()
}

// Analysis is the strict-text result of an incident analysis.
type Analysis struct {
	Text   string         `json:"text"`
	Record *record.Record `json:"record"`
	// Source is the joined input text the analysis was built from.
	Source   string `json:"source"`
	Fallback bool   `json:"fallback"`
}

// AnalyzeIncident transcribes audio, extracts document text and produces
// the strict incident analysis. Without usable text it returns the
// all-default analysis and makes no model call.
func (s *Service) AnalyzeIncident(ctx context.Context, audio, docs []Upload, userID string) (*Analysis, error) {
	const op = "incident.analyze"

	texts, err := s.gather(ctx, op, audio, docs)
	if err != nil {
		return nil, err
	}
	req := Request{Transcript: strings.Join(texts.transcripts, "\n\n"), Documents: texts.documents, UserID: userID}
	source := sourceText(req)
	if source == "" {
		rec := coerce.ToRecord("", coerce.IncidentAnalysisFields)
		return &Analysis{Text: incidentText(rec), Record: rec, Fallback: true}, nil
	}

	out, err := s.Init(ctx, WorkflowIncident, req)
	if err != nil {
		return nil, err
	}
	return &Analysis{Text: incidentText(out.Record), Record: out.Record, Source: source, Fallback: out.Fallback}, nil
}

func incidentText(rec *record.Record) string {
	return coerce.IncidentAnalysisBanner + "\n" + coerce.FromRecord(rec, coerce.IncidentAnalysisFields)
}

// ModifyIncident applies one instruction to an incident analysis. The
// impact assessment, when given, travels with the record under
// "impact_assessment". Both documents are checked before a voice
// instruction is transcribed.
func (s *Service) ModifyIncident(ctx context.Context, incident, impact string, d Directive, userID string) (*Outcome, error) {
	const op = "incident.modify"

	base, err := inputRecord(op, "incident_response", incident)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(impact) != "" {
		ia, err := inputRecord(op, "impact_assessment", impact)
		if err != nil {
			return nil, err
		}
		base.Set("impact_assessment", record.Object(ia))
	}
	return s.modifyWith(ctx, op, WorkflowIncident, base, d, userID)
}

// modifyWith resolves d and runs the workflow's modify stage on base.
func (s *Service) modifyWith(ctx context.Context, op, workflow string, base *record.Record, d Directive, userID string) (*Outcome, error) {
	if d.empty() {
		return nil, fault.Input(op, "instruction is required")
	}
	instruction, err := s.instruction(ctx, op, d)
	if err != nil {
		return nil, err
	}
	return s.Modify(ctx, workflow, Request{Record: base, Instruction: instruction, UserID: userID})
}

// inputRecord reads a caller document that must hold at least one field.
func inputRecord(op, field, raw string) (*record.Record, error) {
	rec, err := parse.Input(raw)
	if err != nil {
		return nil, fault.Input(op, "invalid format for %s: %v", field, err).With("field", field)
	}
	if rec.Len() == 0 {
		return nil, fault.Input(op, "%s has no fields", field).With("field", field)
	}
	return rec, nil
}

// AssessImpact produces the eight-line impact assessment from a prior
// analysis and supporting documents.
func (s *Service) AssessImpact(ctx context.Context, analysis string, docs []Upload, userID string) (string, *Outcome, error) {
	const op = "impact.assess"

	texts, err := s.gather(ctx, op, nil, docs)
	if err != nil {
		return "", nil, err
	}
	out, err := s.Run(ctx, WorkflowImpactAssessment, StageInit, Request{
		Analysis:  analysis,
		Documents: texts.documents,
		UserID:    userID,
	})
	if err != nil {
		return "", nil, err
	}
	return coerce.FromRecord(out.Record, coerce.ImpactAssessmentFields), out, nil
}
