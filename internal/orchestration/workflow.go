package orchestration

import (
	"sort"
	"strings"

	"github.com/bizmatters/deviation-service/internal/merge"
	"github.com/bizmatters/deviation-service/internal/parse"
	"github.com/bizmatters/deviation-service/internal/record"
	"github.com/bizmatters/deviation-service/internal/redline"
)

// Stage is one step of a workflow's lifecycle.
type Stage string

const (
	StageInit      Stage = "init"
	StagePerMinute Stage = "per-minute"
	StageFinal     Stage = "final"
	StageRepeat    Stage = "repeat"
	StageModify    Stage = "modify"
)

// Request is everything a turn needs. The caller always sends the current
// record back in; nothing is kept between turns.
type Request struct {
	Record      *record.Record `json:"record,omitempty"`
	Transcript  string         `json:"transcript,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
	// Documents holds text already extracted from uploaded files.
	Documents []string `json:"documents,omitempty"`
	// Analysis is a prior incident analysis, as JSON or labelled text.
	Analysis string `json:"analysis,omitempty"`
	UserID   string `json:"-"`
}

type requirement int

const (
	needTranscript requirement = 1 << iota
	needInstruction
	needRecord
	// needSource is satisfied by a transcript, a document or an analysis.
	needSource
)

// stageSpec is the behavior of one workflow stage.
type stageSpec struct {
	system string
	prompt func(base *record.Record, req Request) string
	// parse turns model text into an update. Defaults to parse.ExtractJSON.
	parse   func(raw string) (*record.Record, bool)
	schema  Schema
	redline redline.Mode
	needs   requirement
	// seed starts from the schema template when the caller has no record.
	seed  bool
	merge []merge.Option
	// check adds stage-specific validation on top of the schema.
	check func(rec *record.Record) []string
}

func (s stageSpec) extract(raw string) (*record.Record, bool) {
	if s.parse != nil {
		return s.parse(raw)
	}
	return parse.ExtractJSON(raw)
}

// Workflow is a named document type and the stages it supports.
type Workflow struct {
	Name   string
	stages map[Stage]stageSpec
}

// Stages lists the supported stages in a stable order.
func (w *Workflow) Stages() []Stage {
	out := make([]Stage, 0, len(w.stages))
	for s := range w.stages {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Supports reports whether w has stage s.
func (w *Workflow) Supports(s Stage) bool {
	_, ok := w.stages[s]
	return ok
}

const (
	WorkflowIncident         = "incident"
	WorkflowInitiation       = "initiation"
	WorkflowImpactAssessment = "impact-assessment"
	WorkflowInvestigation    = "investigation"
	WorkflowQTARevision      = "qta-revision"
	WorkflowQTAReview        = "qta-review"
	WorkflowQualityReview    = "quality-review"
)

var registry = map[string]*Workflow{
	WorkflowIncident:         incidentWorkflow(),
	WorkflowInitiation:       initiationWorkflow(),
	WorkflowImpactAssessment: impactWorkflow(),
	WorkflowInvestigation:    investigationWorkflow(),
	WorkflowQTARevision:      qtaRevisionWorkflow(),
	WorkflowQTAReview:        qtaReviewWorkflow(),
	WorkflowQualityReview:    qualityReviewWorkflow(),
}

// Lookup returns the workflow registered under name.
func Lookup(name string) (*Workflow, bool) {
	w, ok := registry[strings.ToLower(name)]
	return w, ok
}

// Workflows lists the registered workflow names.
func Workflows() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
