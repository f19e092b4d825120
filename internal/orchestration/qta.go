package orchestration

import (
	"strings"

	"github.com/bizmatters/deviation-service/internal/merge"
	"github.com/bizmatters/deviation-service/internal/record"
	"github.com/bizmatters/deviation-service/internal/redline"
)

const qtaSystem = "You are a pharmaceutical quality assurance specialist reviewing and revising " +
	"Quality Technical Agreements (QTAs) between manufacturers and contract partners."

var qtaRevisionMinute = Schema{text("changed_details"), text("action_summary")}

var qtaRevisionFinal = Schema{text("action_summary"), text("change_details"), text("document_text")}

const qtaRevisionShape = `{
  "action_summary": "...",
  "change_details": "...",
  "document_text": "full revised QTA text"
}`

func qtaRevisionWorkflow() *Workflow {
	return &Workflow{
		Name: WorkflowQTARevision,
		stages: map[Stage]stageSpec{
			StagePerMinute: {
				system: qtaSystem,
				prompt: qtaRevisionMinutePrompt,
				schema: qtaRevisionMinute,
				needs:  needTranscript,
				seed:   true,
			},
			StageFinal: {
				system:  qtaSystem,
				prompt:  qtaRevisionFinalPrompt,
				schema:  qtaRevisionFinal,
				redline: redline.Track,
				needs:   needTranscript,
			},
			StageRepeat: {
				system:  qtaSystem,
				prompt:  repeatPrompt("QTA revision", qtaRevisionShape),
				schema:  qtaRevisionFinal,
				redline: redline.Preserve,
				needs:   needRecord | needInstruction,
			},
		},
	}
}

func qtaRevisionMinutePrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Track the QTA revision meeting minute by minute.\n\n")
	recordSection(&b, "CURRENT REVISION NOTES", base)
	section(&b, "NEW TRANSCRIPT FRAGMENT", req.Transcript)
	b.WriteString(`Capture in "changed_details" every agreed change to the agreement text, CAPA commitments, SME inputs and gap assessment findings.
Capture in "action_summary" the actions agreed, with owners where stated.

`)
	b.WriteString(perMinuteRules)
	b.WriteString("\n")
	b.WriteString(jsonOnly)
	return b.String()
}

func qtaRevisionFinalPrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Produce the revised Quality Technical Agreement from the meeting.\n\n")
	if base.Len() > 0 {
		recordSection(&b, "REVISION NOTES", base)
	}
	section(&b, "TRANSCRIBED TEXT", truncate(req.Transcript))
	documentsSection(&b, "DOCUMENTS", req.Documents)
	section(&b, "OUTPUT FORMAT", qtaRevisionShape)
	b.WriteString("document_text is the complete agreement with the agreed changes applied.\n")
	b.WriteString(trackRule)
	b.WriteString("\n")
	b.WriteString(jsonOnly)
	return b.String()
}

var qtaReviewMinute = Schema{
	list("quality_review"),
	optional(text("change_summary")),
	optional(text("review_summary")),
}

var qtaReviewFinal = Schema{
	list("quality_review"),
	text("change_summary"),
	text("review_summary"),
	text("new_document_text"),
}

const qtaReviewShape = `{
  "quality_review": [{"criterion": "...", "finding": "...", "status": "..."}],
  "change_summary": "...",
  "review_summary": "...",
  "new_document_text": "full reviewed QTA text"
}`

func qtaReviewWorkflow() *Workflow {
	return &Workflow{
		Name: WorkflowQTAReview,
		stages: map[Stage]stageSpec{
			StagePerMinute: {
				system: qtaSystem,
				prompt: qtaReviewMinutePrompt,
				schema: qtaReviewMinute,
				needs:  needTranscript,
				seed:   true,
				merge:  []merge.Option{merge.WithListUnion("quality_review")},
			},
			StageFinal: {
				system:  qtaSystem,
				prompt:  qtaReviewFinalPrompt,
				schema:  qtaReviewFinal,
				redline: redline.Track,
				needs:   needTranscript,
			},
			StageRepeat: {
				system:  qtaSystem,
				prompt:  repeatPrompt("QTA review", qtaReviewShape),
				schema:  qtaReviewFinal,
				redline: redline.Preserve,
				needs:   needRecord | needInstruction,
			},
		},
	}
}

func qtaReviewMinutePrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Review the QTA meeting minute by minute.\n\n")
	recordSection(&b, "EXISTING QUALITY REVIEW", base)
	section(&b, "NEW TRANSCRIPT FRAGMENT", req.Transcript)
	b.WriteString(`Return new review points only, as objects in "quality_review" with keys "criterion", "finding" and "status".
Criteria: actions completed, content updates, template updates, data integrity, SME inputs.
Existing points are kept automatically; do not repeat them.
`)
	b.WriteString(jsonOnly)
	return b.String()
}

func qtaReviewFinalPrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Complete the QTA review.\n\n")
	if base.Len() > 0 {
		recordSection(&b, "REVIEW SO FAR", base)
	}
	section(&b, "TRANSCRIBED TEXT", truncate(req.Transcript))
	documentsSection(&b, "REFERENCE AND ORIGINAL DOCUMENTS", req.Documents)
	section(&b, "OUTPUT FORMAT", qtaReviewShape)
	b.WriteString(trackRule)
	b.WriteString("\n")
	b.WriteString(jsonOnly)
	return b.String()
}
