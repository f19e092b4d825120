package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("revision-metrics")

// RevisionMetrics provides metrics collection for workflow turns and
// collaborator calls
type RevisionMetrics struct {
	turnsStartedCounter   metric.Int64Counter
	turnsCompletedCounter metric.Int64Counter
	turnsFailedCounter    metric.Int64Counter
	fallbacksCounter      metric.Int64Counter
	turnDurationHistogram metric.Float64Histogram
	collaboratorLatency   metric.Float64Histogram
	turnsActiveGauge      metric.Int64UpDownCounter
}

// NewRevisionMetrics creates a new revision metrics collector
func NewRevisionMetrics() (*RevisionMetrics, error) {
	turnsStartedCounter, err := meter.Int64Counter(
		"deviation.turns.started",
		metric.WithDescription("Total number of workflow turns started"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, err
	}

	turnsCompletedCounter, err := meter.Int64Counter(
		"deviation.turns.completed",
		metric.WithDescription("Total number of workflow turns completed"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, err
	}

	turnsFailedCounter, err := meter.Int64Counter(
		"deviation.turns.failed",
		metric.WithDescription("Total number of workflow turns that failed"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacksCounter, err := meter.Int64Counter(
		"deviation.turns.fallbacks",
		metric.WithDescription("Turns that returned the base record because the model output could not be parsed"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, err
	}

	turnDurationHistogram, err := meter.Float64Histogram(
		"deviation.turn.duration",
		metric.WithDescription("Duration of a workflow turn in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	collaboratorLatency, err := meter.Float64Histogram(
		"deviation.collaborator.duration",
		metric.WithDescription("Latency of LLM, OCR and transcription calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	turnsActiveGauge, err := meter.Int64UpDownCounter(
		"deviation.turns.active",
		metric.WithDescription("Number of turns currently in flight"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, err
	}

	return &RevisionMetrics{
		turnsStartedCounter:   turnsStartedCounter,
		turnsCompletedCounter: turnsCompletedCounter,
		turnsFailedCounter:    turnsFailedCounter,
		fallbacksCounter:      fallbacksCounter,
		turnDurationHistogram: turnDurationHistogram,
		collaboratorLatency:   collaboratorLatency,
		turnsActiveGauge:      turnsActiveGauge,
	}, nil
}

// RecordTurnStarted records the start of a turn
func (rm *RevisionMetrics) RecordTurnStarted(ctx context.Context, workflow, stage string) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("stage", stage),
	)
	rm.turnsStartedCounter.Add(ctx, 1, attrs)
	rm.turnsActiveGauge.Add(ctx, 1, attrs)
}

// RecordTurnCompleted records a turn that produced a record
func (rm *RevisionMetrics) RecordTurnCompleted(ctx context.Context, workflow, stage string, fallback bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("stage", stage),
	)
	rm.turnsCompletedCounter.Add(ctx, 1, attrs)
	if fallback {
		rm.fallbacksCounter.Add(ctx, 1, attrs)
	}
	rm.turnDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("workflow", workflow),
			attribute.String("stage", stage),
			attribute.String("status", "completed"),
		),
	)
	rm.turnsActiveGauge.Add(ctx, -1, attrs)
}

// RecordTurnFailed records a turn that ended with a fault
func (rm *RevisionMetrics) RecordTurnFailed(ctx context.Context, workflow, stage, faultKind string, duration time.Duration) {
	rm.turnsFailedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("workflow", workflow),
			attribute.String("stage", stage),
			attribute.String("fault.kind", faultKind),
		),
	)
	rm.turnDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("workflow", workflow),
			attribute.String("stage", stage),
			attribute.String("status", "failed"),
		),
	)
	rm.turnsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("workflow", workflow),
			attribute.String("stage", stage),
		),
	)
}

// RecordCollaboratorCall records the latency of one external call
func (rm *RevisionMetrics) RecordCollaboratorCall(ctx context.Context, collaborator string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	rm.collaboratorLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("collaborator", collaborator),
			attribute.String("status", status),
		),
	)
}
