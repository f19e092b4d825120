package models

import (
	"encoding/json"
)

// TurnRequest is the JSON body of POST /api/workflows/{workflow}/{stage}.
// Record is the caller's current document; the server keeps no copy.
type TurnRequest struct {
	Record      json.RawMessage `json:"record,omitempty" swaggertype:"object"`
	Transcript  string          `json:"transcript,omitempty"`
	Instruction string          `json:"instruction,omitempty"`
	Documents   []string        `json:"documents,omitempty"`
	Analysis    string          `json:"analysis,omitempty"`
}

// TurnResponse is the updated document plus what changed.
type TurnResponse struct {
	Record       json.RawMessage `json:"record" swaggertype:"object"`
	Fallback     bool            `json:"fallback"`
	Changed      []string        `json:"changed"`
	AddedKeys    []string        `json:"added_keys,omitempty"`
	MissingKeys  []string        `json:"missing_keys,omitempty"`
	Instruction  string          `json:"instruction,omitempty"`
	Modification string          `json:"modification_type,omitempty"`
}

// TranscribeResponse lists one transcript per uploaded file.
type TranscribeResponse struct {
	Transcripts []string `json:"transcripts"`
}

// WorkflowInfo describes a registered workflow.
type WorkflowInfo struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

// LiveFrame is a client message on the per-minute websocket.
type LiveFrame struct {
	Transcript string          `json:"transcript"`
	Record     json.RawMessage `json:"record,omitempty"`
}

// LiveReply is a server message on the per-minute websocket. Exactly one of
// Record and Error is set.
type LiveReply struct {
	Record   json.RawMessage `json:"record,omitempty"`
	Fallback bool            `json:"fallback,omitempty"`
	Changed  []string        `json:"changed,omitempty"`
	Error    *ErrorResponse  `json:"error,omitempty"`
}

// BackgroundCheckRequest carries the background details gathered so far
// during initiation.
type BackgroundCheckRequest struct {
	BackgroundDetails json.RawMessage `json:"background_details" binding:"required" swaggertype:"object"`
}

// BackgroundCheckResponse is a sentence naming the details still missing.
type BackgroundCheckResponse struct {
	Message string `json:"message"`
}

// RetitleRequest asks for attachment titles to be rewritten.
type RetitleRequest struct {
	Instruction    string   `json:"user_input" binding:"required"`
	ExistingTitles []string `json:"existing_file_titles" binding:"required,min=1"`
}

// RetitleResponse holds one new title per existing title, in order.
type RetitleResponse struct {
	NewTitles []string `json:"new_file_titles"`
}
