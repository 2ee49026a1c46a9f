package graph

import (
	"time"
	"unicode/utf8"
)

// Role is the conversation role of a dialogue node
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// NodeType places a dialogue node in the concept hierarchy
type NodeType string

const (
	NodeTypeRoot        NodeType = "root"
	NodeTypeExplanation NodeType = "explanation"
	NodeTypeKeyword     NodeType = "keyword"
	NodeTypeDefault     NodeType = "default"
)

// EdgeType is a typed relation between two dialogue nodes
type EdgeType string

const (
	// EdgeHasChild links a conversation turn to a follow-up turn
	EdgeHasChild EdgeType = "HAS_CHILD"
	// EdgeHasKeyword links a concept node to an extracted keyword node
	EdgeHasKeyword EdgeType = "HAS_KEYWORD"
)

// Valid reports whether the edge type is one of the known relations.
// Relationship types are interpolated into Cypher, so anything else is
// rejected before it reaches a query.
func (e EdgeType) Valid() bool {
	return e == EdgeHasChild || e == EdgeHasKeyword
}

// DialogueNode is a persisted unit of conversation or extracted concept.
// NodeID is caller-assigned and globally unique; re-saving the same id is
// an idempotent upsert.
type DialogueNode struct {
	NodeID       string    `json:"node_id"`
	UserID       string    `json:"user_id"`
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	Title        string    `json:"title,omitempty"`
	Type         NodeType  `json:"type"`
	Intent       string    `json:"intent,omitempty"`
	MasteryScore float64   `json:"mastery_score"`
	Timestamp    time.Time `json:"timestamp"`
}

// DialogueTree is a dialogue node with its HAS_CHILD descendants, ordered
// by ascending timestamp at each level.
type DialogueTree struct {
	DialogueNode
	Children []*DialogueTree `json:"children"`
}

// MindMapRow is one flattened parent->child tuple of a persisted subgraph,
// shaped for direct mind-map construction.
type MindMapRow struct {
	SourceID      string `json:"source_id"`
	SourceTitle   string `json:"source_title"`
	SourceContent string `json:"source_content"`
	SourceType    string `json:"source_type"`
	TargetID      string `json:"target_id"`
	TargetTitle   string `json:"target_title"`
	TargetContent string `json:"target_content"`
	TargetType    string `json:"target_type"`
	RelID         string `json:"rel_id"`
	RelType       string `json:"rel_type"`
}

const titleRunes = 20

// DefaultTitle derives a display label from content: the first 20
// characters plus an ellipsis when truncated.
func DefaultTitle(content string) string {
	if utf8.RuneCountInString(content) <= titleRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:titleRunes]) + "..."
}
