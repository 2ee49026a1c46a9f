package agent

import (
	"context"

	"deepstudy/backend/internal/extractor"
	"deepstudy/backend/internal/graph"
)

// Request is a single user query handed to the orchestrator. The caller
// (an external, already-authenticated transport) supplies the user id.
type Request struct {
	UserID        string
	Query         string
	ParentID      string
	SessionID     string
	RefFragmentID string
}

// Fragment is a referenceable span of the generated answer, used by the
// UI for text selection follow-ups.
type Fragment struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Response is the non-streaming orchestrator output
type Response struct {
	Answer           string             `json:"answer"`
	Fragments        []Fragment         `json:"fragments"`
	KnowledgeTriples []extractor.Triple `json:"knowledge_triples"`
	ConversationID   string             `json:"conversation_id"`
	ParentID         string             `json:"parent_id,omitempty"`
}

// Stream record types, emitted in order: one meta, zero or more deltas,
// at most one error, always a terminal end.
const (
	ChunkMeta  = "meta"
	ChunkDelta = "delta"
	ChunkError = "error"
	ChunkEnd   = "end"
	ChunkFull  = "full"
)

// StreamChunk is one newline-delimited JSON record of the streaming output
type StreamChunk struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
	Message        string `json:"message,omitempty"`
	Answer         string `json:"answer,omitempty"`
	ParentID       string `json:"parent_id,omitempty"`
}

// Generator is the generation surface the orchestrator depends on; the
// adapter package satisfies it and tests substitute fakes.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error
}

// GraphStore is the persistence surface the orchestrator depends on
type GraphStore interface {
	UpsertDialogueNode(ctx context.Context, node graph.DialogueNode) error
	LinkNodes(ctx context.Context, parentID, childID string, relType graph.EdgeType, attrs map[string]interface{}) error
}
