package orchestration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/llm/llmtest"
	"github.com/bizmatters/deviation-service/internal/record"
)

func TestInitiation_PerMinuteSeedsAndAccumulatesAttendees(t *testing.T) {
	completer := llmtest.New(
		`{"incident_title": "Torn bag in Room 4",
		  "background_details": {"Who": "Alice and Bob", "Where": "Room 4"},
		  "background_attendee": ["Alice", "Bob"],
		  "impact_assessment": {"Product_Quality": {"impact": "Yes", "severity": "Medium"}}}`,
		`{"background_attendee": ["Bob", "Carol"], "criticality": "Major"}`,
	)
	svc := newTestService(completer)
	ctx := context.Background()

	first, err := svc.PerMinute(ctx, WorkflowInitiation, Request{Transcript: "Alice and Bob found a torn bag in Room 4."})
	require.NoError(t, err)
	assert.False(t, first.Fallback)

	details, _ := first.Record.Get("background_details")
	bg, ok := details.Record()
	require.True(t, ok)
	assert.Equal(t, "Room 4", bg.GetString("Where"))
	assert.True(t, bg.Has("CAPA"), "template keys are kept")
	assert.Equal(t, "", bg.GetString("CAPA"))

	second, err := svc.PerMinute(ctx, WorkflowInitiation, Request{
		Record:     first.Record,
		Transcript: "Carol from QA joined; this looks major.",
	})
	require.NoError(t, err)
	assert.Equal(t, "Major", second.Record.GetString("criticality"))
	assert.Equal(t, "Torn bag in Room 4", second.Record.GetString("incident_title"))

	attendees, _ := second.Record.Get("background_attendee")
	var names []string
	for _, v := range attendees.Items() {
		names = append(names, v.String())
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)
	assert.Contains(t, completer.LastPrompt(), "Torn bag in Room 4")
}

func TestInitiation_PerMinuteRejectsUnknownRatings(t *testing.T) {
	completer := llmtest.New(`{
		"impact_assessment": {"Patient_Safety": {"impact": "No", "severity": "High"}},
		"criticality": "Critical"
	}`)
	svc := newTestService(completer)

	_, err := svc.PerMinute(context.Background(), WorkflowInitiation, Request{Transcript: "no patient risk"})
	require.Error(t, err)

	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.ValidationFailure, f.Kind)
	assert.ElementsMatch(t, []string{"impact_assessment.Patient_Safety.severity", "criticality"}, f.Fields)
}

func TestInitiation_Final(t *testing.T) {
	report := `{
		"incident_title": "1. Incident Title: Torn bag",
		"background": "2. Background\nA bag tore in Room 4.",
		"meeting_attendees": "3. Meeting Attendees\nAlice, Bob",
		"impact_assessment": "4. Impact Assessment\nNo patient risk.",
		"criticality": "5. Criticality\nCriticality: Minor"
	}`

	t.Run("five sections", func(t *testing.T) {
		completer := llmtest.New(report)
		svc := newTestService(completer)

		out, err := svc.Final(context.Background(), WorkflowInitiation, Request{
			Record:     mustRecord(t, `{"incident_title": "Torn bag", "background_attendee": ["Alice", "Bob"]}`),
			Transcript: "Alice and Bob discussed the torn bag.",
		})
		require.NoError(t, err)
		assert.Equal(t, "3. Meeting Attendees\nAlice, Bob", out.Record.GetString("meeting_attendees"))
		assert.Contains(t, completer.LastPrompt(), "DETAILS GATHERED DURING THE MEETING")
	})

	t.Run("missing section", func(t *testing.T) {
		svc := newTestService(llmtest.New(`{"incident_title": "1. Incident Title: Torn bag"}`))

		_, err := svc.Final(context.Background(), WorkflowInitiation, Request{Transcript: "a bag tore"})
		f, ok := fault.As(err)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, fault.ValidationFailure, f.Kind)
		assert.Contains(t, f.Fields, "criticality")
	})

	t.Run("transcript required", func(t *testing.T) {
		completer := llmtest.New(report)
		svc := newTestService(completer)

		_, err := svc.Final(context.Background(), WorkflowInitiation, Request{})
		assert.True(t, fault.Is(err, fault.InputFailure))
		assert.Empty(t, completer.Calls())
	})
}

func TestInitiation_ModifyReport(t *testing.T) {
	completer := llmtest.New(`{"criticality": "5. Criticality\nCriticality: Major"}`)
	svc := newTestService(completer)

	out, err := svc.Modify(context.Background(), WorkflowInitiation, Request{
		Record: mustRecord(t, `{
			"incident_title": "1. Incident Title: Torn bag",
			"background": "2. Background",
			"meeting_attendees": "3. Meeting Attendees",
			"impact_assessment": "4. Impact Assessment",
			"criticality": "5. Criticality\nCriticality: Minor"
		}`),
		Instruction: "change the criticality to major",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"criticality"}, out.Changed)
	assert.Equal(t, "change the criticality to major", out.Instruction)
	assert.Equal(t, "1. Incident Title: Torn bag", out.Record.GetString("incident_title"))
}

func TestCheckBackground(t *testing.T) {
	filled := func(blank ...string) *record.Record {
		rec := record.New()
		for _, k := range BackgroundFields {
			rec.Set(k, record.String("noted"))
		}
		for _, k := range blank {
			rec.Set(k, record.String(""))
		}
		return rec
	}

	tests := []struct {
		name    string
		details *record.Record
		want    string
	}{
		{"complete", filled(), "All background details have been provided."},
		{"one blank", filled("Where"), "You haven't mentioned Where."},
		{"two blank", filled("CAPA", "Where"), "You haven't talked about Where and CAPA."},
		{
			"several blank",
			filled("Where", "Immediate_Action", "Quality_Concerns", "Expected_Interim_Action", "CAPA"),
			"You haven't talked about Where, Immediate Action, Quality Concerns, Expected Interim Action, and CAPA.",
		},
		{"whitespace is blank", filled().Set("Who", record.String("  ")), "You haven't mentioned Who."},
		{"extra key reported last", filled("RCA_tool").Set("Batch_Number", record.Null()), "You haven't talked about RCA tool and Batch Number."},
		{"absent keys are not reported", mustRecord(t, `{"Who": "Alice"}`), "All background details have been provided."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckBackground(tt.details))
		})
	}
}
