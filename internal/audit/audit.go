// Package audit records completed workflow turns.
package audit

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

//go:embed schema.sql
var Schema string

// Event is one completed turn.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Workflow    string    `json:"workflow"`
	Stage       string    `json:"stage"`
	UserID      string    `json:"user_id,omitempty"`
	Fallback    bool      `json:"fallback"`
	ChangedKeys []string  `json:"changed_keys"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recorder persists events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Nop discards events. It is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// PostgresRecorder writes events to the revision_events table.
type PostgresRecorder struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewPostgresRecorder creates a recorder backed by pool.
func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{
		pool:   pool,
		tracer: otel.Tracer("audit"),
	}
}

// EnsureSchema creates the tables if they do not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply audit schema: %w", err)
	}
	return nil
}

// Record inserts e, assigning an ID and timestamp when missing.
func (r *PostgresRecorder) Record(ctx context.Context, e Event) error {
	ctx, span := r.tracer.Start(ctx, "audit.record")
	defer span.End()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.ChangedKeys == nil {
		e.ChangedKeys = []string{}
	}

	span.SetAttributes(
		attribute.String("workflow", e.Workflow),
		attribute.String("stage", e.Stage),
	)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO revision_events (id, workflow, stage, user_id, fallback, changed_keys, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Workflow, e.Stage, e.UserID, e.Fallback, e.ChangedKeys, e.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record revision event: %w", err)
	}
	return nil
}

// Recent returns the latest events for workflow, newest first.
func (r *PostgresRecorder) Recent(ctx context.Context, workflow string, limit int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workflow, stage, user_id, fallback, changed_keys, created_at
		FROM revision_events
		WHERE workflow = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, workflow, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query revision events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Workflow, &e.Stage, &e.UserID, &e.Fallback, &e.ChangedKeys, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revision events: %w", err)
	}
	return events, nil
}
