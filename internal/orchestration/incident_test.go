package orchestration

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/deviation-service/internal/classify"
	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/llm/llmtest"
	"github.com/bizmatters/deviation-service/internal/ocr"
)

const analysisReply = `===ANALYSIS START===
INCIDENT_TITLE: Tablet press jam in compression room
BACKGROUND: Routine compression of batch B-12
WHO: Operator on shift A
WHAT: Tablet press jammed during compression of batch B-12
WHERE: Room 4
===ANALYSIS END===`

func TestAnalyzeIncident(t *testing.T) {
	files := &fakeFiles{texts: map[string]string{
		"call.mp3": "Operator reported the press jammed in Room 4.",
		"sop.pdf":  "SOP-12 compression procedure.",
	}}
	completer := llmtest.New(analysisReply)
	svc := newTestService(completer, WithTranscriber(files), WithExtractor(files))

	got, err := svc.AnalyzeIncident(context.Background(),
		[]Upload{upload("call.mp3")}, []Upload{upload("sop.pdf")}, "user-1")
	require.NoError(t, err)

	lines := strings.Split(got.Text, "\n")
	require.Len(t, lines, 13)
	assert.Equal(t, "===ANALYSIS START===", lines[0])
	assert.Equal(t, "INCIDENT_TITLE: Tablet press jam in compression room", lines[1])
	assert.Equal(t, "WHERE: Room 4", lines[5])
	assert.Equal(t, "ATTENDEES: Not specified", lines[12])

	prompt := completer.LastPrompt()
	audioAt := strings.Index(prompt, "press jammed in Room 4")
	docAt := strings.Index(prompt, "SOP-12")
	require.True(t, audioAt >= 0 && docAt >= 0)
	assert.Less(t, audioAt, docAt, "audio text comes first")
	assert.Equal(t, "Operator reported the press jammed in Room 4.\n\nSOP-12 compression procedure.", got.Source)
}

func TestAnalyzeIncident_ShortFieldsFailValidation(t *testing.T) {
	files := &fakeFiles{texts: map[string]string{"notes.txt": "jam"}}
	svc := newTestService(llmtest.New("INCIDENT_TITLE: Jam\nWHAT: short"), WithExtractor(files))

	_, err := svc.AnalyzeIncident(context.Background(), nil, []Upload{upload("notes.txt")}, "")
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.ValidationFailure, f.Kind)
	assert.Equal(t, []string{"INCIDENT_TITLE", "WHAT"}, f.Fields)
}

func TestAnalyzeIncident_NoTextGivesDefaults(t *testing.T) {
	files := &fakeFiles{errs: map[string]error{"blank.pdf": ocr.ErrNoText}}
	completer := llmtest.New()
	svc := newTestService(completer, WithExtractor(files))

	got, err := svc.AnalyzeIncident(context.Background(), nil, []Upload{upload("blank.pdf")}, "")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Empty(t, completer.Calls())
	assert.Contains(t, got.Text, "INCIDENT_TITLE: Not specified")
	assert.Len(t, strings.Split(got.Text, "\n"), 13)
}

func TestAnalyzeIncident_UnsupportedFileRejectedBeforeAnyCall(t *testing.T) {
	files := &fakeFiles{}
	completer := llmtest.New()
	svc := newTestService(completer, WithTranscriber(files), WithExtractor(files))

	_, err := svc.AnalyzeIncident(context.Background(),
		[]Upload{upload("call.mp3"), upload("notes.exe")}, nil, "")
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.InputFailure, f.Kind)
	assert.Equal(t, "notes.exe", f.Context["filename"])
	assert.Zero(t, files.calls())
	assert.Empty(t, completer.Calls())
}

func TestModifyIncident(t *testing.T) {
	completer := llmtest.New("```json\n{\"title\": \"Solvent spill\"}\n```")
	svc := newTestService(completer)

	out, err := svc.ModifyIncident(context.Background(),
		`{"title": "Spill", "background": "Room 4"}`,
		"DEVIATION_TRIAGE: Yes\nCRITICALITY: Minor",
		Directive{Text: "please change the title to Solvent spill"}, "")
	require.NoError(t, err)

	assert.Equal(t, "Solvent spill", out.Record.GetString("title"))
	assert.Equal(t, "Room 4", out.Record.GetString("background"))
	impact, ok := out.Record.Get("impact_assessment")
	require.True(t, ok)
	ia, _ := impact.Record()
	assert.Equal(t, "Yes", ia.GetString("DEVIATION_TRIAGE"))
	assert.Equal(t, []string{"title"}, out.Changed)
	assert.Equal(t, "please change the title to Solvent spill", out.Instruction)

	call := completer.Calls()[0]
	assert.Contains(t, call.SystemPrompt, "updating INCIDENT analysis documents")
	assert.Contains(t, call.Prompt, classify.Guidance(classify.TitleChange))
	assert.Contains(t, call.Prompt, "\"background\": \"Room 4\"")
}

func TestModifyIncident_VoiceInstruction(t *testing.T) {
	files := &fakeFiles{texts: map[string]string{"note.m4a": "rename it to Solvent spill"}}
	completer := llmtest.New(`{"title": "Solvent spill"}`)
	svc := newTestService(completer, WithTranscriber(files))

	note := upload("note.m4a")
	out, err := svc.ModifyIncident(context.Background(), `{"title": "Spill"}`, "", Directive{Audio: &note}, "")
	require.NoError(t, err)
	assert.Equal(t, "rename it to Solvent spill", out.Instruction)
	assert.Equal(t, 1, files.calls())
	assert.Contains(t, completer.LastPrompt(), "rename it to Solvent spill")
}

func TestModify_BadDocumentRejectedBeforeTranscription(t *testing.T) {
	note := upload("note.m4a")
	tests := []struct {
		name   string
		modify func(svc *Service) error
	}{
		{"blank incident", func(svc *Service) error {
			_, err := svc.ModifyIncident(context.Background(), "   ", "", Directive{Audio: &note}, "")
			return err
		}},
		{"empty incident object", func(svc *Service) error {
			_, err := svc.ModifyIncident(context.Background(), "{}", "", Directive{Audio: &note}, "")
			return err
		}},
		{"blank investigation", func(svc *Service) error {
			_, err := svc.ModifyInvestigation(context.Background(), "", Directive{Audio: &note}, "")
			return err
		}},
		{"no instruction", func(svc *Service) error {
			_, err := svc.ModifyIncident(context.Background(), `{"title": "Spill"}`, "", Directive{Text: "  "}, "")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := &fakeFiles{texts: map[string]string{"note.m4a": "change it"}}
			completer := llmtest.New()
			svc := newTestService(completer, WithTranscriber(files))

			err := tt.modify(svc)
			assert.True(t, fault.Is(err, fault.InputFailure), "got %v", err)
			assert.Zero(t, files.calls())
			assert.Empty(t, completer.Calls())
		})
	}
}

func TestAssessImpact(t *testing.T) {
	completer := llmtest.New("Here is the assessment:\nDEVIATION_TRIAGE: Yes\nCRITICALITY: Major")
	svc := newTestService(completer)

	text, out, err := svc.AssessImpact(context.Background(),
		`{"incident_title": "Press jam", "WHAT": "Tablet press jammed", "extra": "ignored"}`, nil, "")
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "DEVIATION_TRIAGE: Yes", lines[0])
	assert.Equal(t, `PRODUCT_QUALITY: {"yes_no": "No", "level": null}`, lines[1])
	assert.Equal(t, "CRITICALITY: Major", lines[7])
	assert.Equal(t, "Major", out.Record.GetString("CRITICALITY"))

	prompt := completer.LastPrompt()
	assert.Contains(t, prompt, "INCIDENT_TITLE: Press jam")
	assert.Contains(t, prompt, "WHAT: Tablet press jammed")
	assert.NotContains(t, prompt, "ignored")
}

func TestPriorAnalysis_PlainTextUnchanged(t *testing.T) {
	assert.Equal(t, "WHO: operator", priorAnalysis("WHO: operator"))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", maxSourceChars)
	got := truncate(long)
	assert.True(t, strings.HasSuffix(got, truncatedMarker))
	assert.LessOrEqual(t, len(got), maxSourceChars+len(truncatedMarker))
	assert.Equal(t, "short", truncate("short"))
}

func TestModifyInvestigation_LabelledInput(t *testing.T) {
	completer := llmtest.New(`{"BACKGROUND": "Granulator stopped at 10:40"}`)
	svc := newTestService(completer)

	out, err := svc.ModifyInvestigation(context.Background(),
		"BACKGROUND: Granulator stopped\nCONCLUSION: Equipment failure", Directive{Text: "update the time to 10:40"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Granulator stopped at 10:40", out.Record.GetString("BACKGROUND"))
	assert.Equal(t, "Equipment failure", out.Record.GetString("CONCLUSION"))
}
