package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS revision_events")
	assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS users")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Event{Workflow: "incident", Stage: "modify"}))
}
