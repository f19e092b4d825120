// Package orchestration runs the deviation workflows: it builds prompts from
// the caller's current record, calls the model and folds the answer back
// into the record.
package orchestration

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/deviation-service/internal/audit"
	"github.com/bizmatters/deviation-service/internal/fault"
	"github.com/bizmatters/deviation-service/internal/llm"
	"github.com/bizmatters/deviation-service/internal/merge"
	"github.com/bizmatters/deviation-service/internal/metrics"
	"github.com/bizmatters/deviation-service/internal/ocr"
	"github.com/bizmatters/deviation-service/internal/record"
	"github.com/bizmatters/deviation-service/internal/redline"
	"github.com/bizmatters/deviation-service/internal/transcribe"
)

var errNoJSON = errors.New("no JSON object found in model response")

// Service handles workflow orchestration logic
type Service struct {
	completer   llm.Completer
	transcriber transcribe.Transcriber
	extractor   ocr.Extractor
	recorder    audit.Recorder
	metrics     *metrics.RevisionMetrics
	logger      *zap.Logger
	tracer      trace.Tracer
}

// Option configures optional collaborators.
type Option func(*Service)

func WithTranscriber(t transcribe.Transcriber) Option { return func(s *Service) { s.transcriber = t } }

func WithExtractor(e ocr.Extractor) Option { return func(s *Service) { s.extractor = e } }

func WithRecorder(r audit.Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithMetrics(m *metrics.RevisionMetrics) Option { return func(s *Service) { s.metrics = m } }

// NewService creates a new orchestration service
func NewService(completer llm.Completer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		completer: completer,
		recorder:  audit.Nop{},
		logger:    logger,
		tracer:    otel.Tracer("orchestration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is the result of one turn. Record becomes the caller's current
// record for the next turn.
type Outcome struct {
	Record *record.Record `json:"record"`
	// Fallback is set when the model answer was unusable and Record is the
	// unchanged base.
	Fallback bool           `json:"fallback"`
	Changed  []string       `json:"changed"`
	Drift    merge.KeyDrift `json:"drift"`
	// Instruction is the instruction the turn applied, after any voice
	// recording was transcribed.
	Instruction string `json:"instruction,omitempty"`
}

// Run executes one stage of a workflow.
//
// A model answer that cannot be parsed returns the caller's record unchanged
// and sets Outcome.Fallback; it only becomes a ParseFailure when the caller
// sent no record to fall back to. Collaborator errors are never absorbed.
func (s *Service) Run(ctx context.Context, workflow string, stage Stage, req Request) (*Outcome, error) {
	op := workflow + "." + string(stage)

	wf, ok := Lookup(workflow)
	if !ok {
		return nil, fault.Input(op, "unknown workflow %q", workflow)
	}
	spec, ok := wf.stages[stage]
	if !ok {
		return nil, fault.Input(op, "workflow %q has no %q stage", wf.Name, stage)
	}
	if err := checkRequest(op, spec.needs, req); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "orchestration.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("workflow", wf.Name),
		attribute.String("stage", string(stage)),
	)

	start := time.Now()
	s.turnStarted(ctx, wf.Name, stage)

	out, err := s.turn(ctx, op, stage, spec, req)
	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.turnFailed(ctx, wf.Name, stage, err, duration)
		return nil, err
	}

	out.Instruction = req.Instruction
	span.SetAttributes(
		attribute.Bool("fallback", out.Fallback),
		attribute.Int("changed_keys", len(out.Changed)),
	)
	s.turnCompleted(ctx, wf.Name, stage, out, duration)
	s.audit(ctx, op, audit.Event{
		Workflow:    wf.Name,
		Stage:       string(stage),
		UserID:      req.UserID,
		Fallback:    out.Fallback,
		ChangedKeys: out.Changed,
	})
	return out, nil
}

// Init drafts a workflow's first record from source material.
func (s *Service) Init(ctx context.Context, workflow string, req Request) (*Outcome, error) {
	return s.Run(ctx, workflow, StageInit, req)
}

// PerMinute folds one minute of transcript into req.Record.
func (s *Service) PerMinute(ctx context.Context, workflow string, req Request) (*Outcome, error) {
	return s.Run(ctx, workflow, StagePerMinute, req)
}

// Final produces the closing report, marking new text with /red markers.
func (s *Service) Final(ctx context.Context, workflow string, req Request) (*Outcome, error) {
	return s.Run(ctx, workflow, StageFinal, req)
}

// Repeat revises a final report, keeping only the /red spans it already had.
func (s *Service) Repeat(ctx context.Context, workflow string, req Request) (*Outcome, error) {
	return s.Run(ctx, workflow, StageRepeat, req)
}

// Modify applies one instruction to req.Record.
func (s *Service) Modify(ctx context.Context, workflow string, req Request) (*Outcome, error) {
	return s.Run(ctx, workflow, StageModify, req)
}

func (s *Service) turn(ctx context.Context, op string, stage Stage, spec stageSpec, req Request) (*Outcome, error) {
	caller := req.Record.Clone()

	base := record.New()
	if stage != StageInit {
		base = caller
		if spec.seed {
			base = merge.Merge(spec.schema.Template(), caller)
		}
	}

	promptBase := base
	if stage == StageInit {
		promptBase = caller
	}
	raw, err := s.complete(ctx, spec.prompt(promptBase, req), spec.system)
	if err != nil {
		return nil, fault.Collaborator(op, err).
			With("instruction", excerpt(req.Instruction)).
			With("transcript", excerpt(req.Transcript))
	}

	update, ok := spec.extract(raw)
	if !ok {
		// The caller's record comes back as sent; the seed template only
		// shapes prompts and successful merges.
		if caller.Len() == 0 {
			return nil, fault.Parse(op, errNoJSON).With("response", excerpt(raw))
		}
		s.logger.Warn("model response unusable, keeping current record",
			zap.String("op", op),
			zap.String("response", excerpt(raw)))
		return &Outcome{Record: caller, Fallback: true}, nil
	}

	var result *record.Record
	var drift merge.KeyDrift
	if stage == StageInit {
		result = update
		if spec.seed {
			result = merge.Merge(spec.schema.Template(), update)
		}
	} else {
		drift = merge.Drift(base, update)
		result = merge.Merge(base, update, spec.merge...)
	}

	result = redline.Apply(spec.redline, base, result)

	var bad []string
	if spec.redline != redline.None {
		bad = append(bad, redline.Check(result)...)
	}
	bad = append(bad, spec.schema.Validate(result)...)
	if spec.check != nil {
		bad = append(bad, spec.check(result)...)
	}
	if len(bad) > 0 {
		return nil, fault.Validation(op, bad...).
			With("instruction", excerpt(req.Instruction))
	}

	out := &Outcome{
		Record:  result,
		Changed: merge.Changed(base, result),
		Drift:   drift,
	}
	s.logger.Info("turn completed",
		zap.String("op", op),
		zap.Bool("fallback", false),
		zap.Strings("changed", out.Changed),
		zap.Strings("drift_added", drift.Added),
		zap.Strings("drift_missing", drift.Missing))
	return out, nil
}

func (s *Service) complete(ctx context.Context, prompt, system string) (string, error) {
	if s.completer == nil {
		return "", errors.New("no llm configured")
	}
	start := time.Now()
	raw, err := s.completer.Complete(ctx, prompt, system)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = llm.ErrEmptyResponse
	}
	s.collaboratorCall(ctx, "llm", time.Since(start), err)
	return raw, err
}

func checkRequest(op string, needs requirement, req Request) error {
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }
	if needs&needRecord != 0 && req.Record.Len() == 0 {
		return fault.Input(op, "current record is required")
	}
	if needs&needTranscript != 0 && blank(req.Transcript) {
		return fault.Input(op, "transcript is required")
	}
	if needs&needInstruction != 0 && blank(req.Instruction) {
		return fault.Input(op, "instruction is required")
	}
	if needs&needSource != 0 && blank(req.Transcript) && blank(req.Analysis) && blank(strings.Join(req.Documents, "")) {
		return fault.Input(op, "no input text supplied")
	}
	return nil
}

// excerpt shortens caller text for fault context and logs.
func excerpt(s string) string {
	const limit = 120
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}

func (s *Service) turnStarted(ctx context.Context, workflow string, stage Stage) {
	if s.metrics != nil {
		s.metrics.RecordTurnStarted(ctx, workflow, string(stage))
	}
}

func (s *Service) turnCompleted(ctx context.Context, workflow string, stage Stage, out *Outcome, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordTurnCompleted(ctx, workflow, string(stage), out.Fallback, d)
	}
}

func (s *Service) turnFailed(ctx context.Context, workflow string, stage Stage, err error, d time.Duration) {
	kind := string(fault.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	s.logger.Warn("turn failed",
		zap.String("workflow", workflow),
		zap.String("stage", string(stage)),
		zap.String("fault", kind),
		zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordTurnFailed(ctx, workflow, string(stage), kind, d)
	}
}

func (s *Service) collaboratorCall(ctx context.Context, name string, d time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.RecordCollaboratorCall(ctx, name, d, err)
	}
}

func (s *Service) audit(ctx context.Context, op string, e audit.Event) {
	if err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Warn("failed to record revision event", zap.String("op", op), zap.Error(err))
	}
}
