package orchestration

import (
	"strings"

	"github.com/bizmatters/deviation-service/internal/record"
	"github.com/bizmatters/deviation-service/internal/redline"
)

var qualityReviewMinute = Schema{text("quality_review"), text("sme_review")}

func qualityReviewWorkflow() *Workflow {
	return &Workflow{
		Name: WorkflowQualityReview,
		stages: map[Stage]stageSpec{
			StagePerMinute: {
				system: investigatorSystem,
				prompt: qualityReviewMinutePrompt,
				schema: qualityReviewMinute,
				needs:  needTranscript,
				seed:   true,
			},
			StageFinal: {
				system:  investigatorSystem,
				prompt:  qualityReviewFinalPrompt,
				schema:  finalReport,
				redline: redline.Track,
				needs:   needRecord,
			},
			StageRepeat: {
				system:  investigatorSystem,
				prompt:  repeatPrompt("final report", finalReportShape),
				schema:  finalReport,
				redline: redline.Preserve,
				needs:   needRecord | needInstruction,
			},
		},
	}
}

func qualityReviewMinutePrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Update the quality and SME review notes with the latest minute of the review meeting.\n\n")
	recordSection(&b, "EXISTING REVIEW", base)
	section(&b, "NEW TRANSCRIPT FRAGMENT", req.Transcript)
	b.WriteString(`"quality_review" answers:
1. Is the investigation complete and is the root cause supported by evidence?
2. Are the CAPAs effective and appropriately scoped?
3. Is the impact on product quality and patient safety justified?

"sme_review" answers:
1. Is the technical explanation of the failure sound?
2. Were the relevant process and equipment factors considered?
3. Are the proposed actions technically feasible?

`)
	b.WriteString(perMinuteRules)
	b.WriteString("\n")
	b.WriteString(jsonOnly)
	return b.String()
}

func qualityReviewFinalPrompt(base *record.Record, req Request) string {
	var b strings.Builder
	b.WriteString("Revise the final deviation report using the quality and SME review.\n\n")
	recordSection(&b, "CURRENT REPORT AND REVIEW", base)
	if t := strings.TrimSpace(req.Transcript); t != "" {
		section(&b, "REVIEW TRANSCRIPT", truncate(t))
	}
	section(&b, "OUTPUT FORMAT", finalReportShape)
	b.WriteString(trackRule)
	b.WriteString("\n")
	b.WriteString(jsonOnly)
	return b.String()
}
