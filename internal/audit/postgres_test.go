package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/deviation-service/internal/audit"
	"github.com/bizmatters/deviation-service/internal/pgtest"
)

func TestPostgresRecorder_RecordAndRecent(t *testing.T) {
	pool := pgtest.Pool(t)
	workflow := pgtest.UniqueName("qta-review")
	pgtest.DeleteEvents(t, pool, workflow)

	r := audit.NewPostgresRecorder(pool)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond)

	require.NoError(t, r.Record(ctx, audit.Event{
		Workflow: workflow, Stage: "per-minute", UserID: "user-1",
		ChangedKeys: []string{"quality_review"}, CreatedAt: base,
	}))
	require.NoError(t, r.Record(ctx, audit.Event{
		Workflow: workflow, Stage: "per-minute", Fallback: true, CreatedAt: base.Add(time.Second),
	}))
	require.NoError(t, r.Record(ctx, audit.Event{Workflow: workflow, Stage: "final"}))

	events, err := r.Recent(ctx, workflow, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "final", events[0].Stage, "newest first")
	assert.True(t, events[1].Fallback)
	assert.Empty(t, events[1].ChangedKeys)

	all, err := r.Recent(ctx, workflow, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"quality_review"}, all[2].ChangedKeys)
	assert.Equal(t, "user-1", all[2].UserID)
	assert.NotEqual(t, all[0].ID, all[1].ID)
}

func TestPostgresRecorder_EnsureSchemaIsIdempotent(t *testing.T) {
	pool := pgtest.Pool(t)
	r := audit.NewPostgresRecorder(pool)
	assert.NoError(t, r.EnsureSchema(context.Background()))
}
