package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRevisionMetrics_Creation(t *testing.T) {
	metrics, err := NewRevisionMetrics()
	require.NoError(t, err)
	assert.NotNil(t, metrics.turnsStartedCounter)
	assert.NotNil(t, metrics.turnsCompletedCounter)
	assert.NotNil(t, metrics.turnsFailedCounter)
	assert.NotNil(t, metrics.fallbacksCounter)
	assert.NotNil(t, metrics.turnDurationHistogram)
	assert.NotNil(t, metrics.collaboratorLatency)
	assert.NotNil(t, metrics.turnsActiveGauge)
}

func TestRevisionMetrics_Record(t *testing.T) {
	metrics, err := NewRevisionMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("turn lifecycle", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordTurnStarted(ctx, "qta-review", "per-minute")
			metrics.RecordTurnCompleted(ctx, "qta-review", "per-minute", true, 2*time.Second)
		})
	})

	t.Run("failed turns", func(t *testing.T) {
		for _, kind := range []string{"collaborator_failure", "validation_failure", "parse_failure"} {
			assert.NotPanics(t, func() {
				metrics.RecordTurnStarted(ctx, "investigation", "final")
				metrics.RecordTurnFailed(ctx, "investigation", "final", kind, time.Second)
			})
		}
	})

	t.Run("collaborator calls", func(t *testing.T) {
		assert.NotPanics(t, func() {
			metrics.RecordCollaboratorCall(ctx, "llm", 300*time.Millisecond, nil)
			metrics.RecordCollaboratorCall(ctx, "ocr", time.Second, errors.New("timeout"))
		})
	})
}

func TestRevisionMetrics_Exported(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	defer provider.Shutdown(context.Background())

	metrics, err := NewRevisionMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordTurnStarted(ctx, "incident", "modify")
	metrics.RecordTurnCompleted(ctx, "incident", "modify", true, time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					found[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), found["deviation.turns.started"])
	assert.Equal(t, int64(1), found["deviation.turns.completed"])
	assert.Equal(t, int64(1), found["deviation.turns.fallbacks"])
	assert.Equal(t, int64(0), found["deviation.turns.active"])
}
