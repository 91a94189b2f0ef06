package core

import (
	"context"
	"time"
)

// ChatRequest carries everything one model turn needs.
type ChatRequest struct {
	Messages       []Message
	Tools          []Tool
	MaxTokens      int
	ThinkingBudget int
}

// Stream event types emitted while a model turn is in flight.
const (
	EventBlockStart  = "content_block_start"
	EventTextDelta   = "text_delta"
	EventThinking    = "thinking_delta"
	EventBlockStop   = "content_block_stop"
	EventMessageStop = "message_stop"
)

// StreamEvent is one demultiplexed event from the model's event stream.
// BlockType and ToolName are set for EventBlockStart; Text for deltas.
type StreamEvent struct {
	Type      string
	BlockType string
	ToolName  string
	Text      string
}

// ModelProvider is the remote language-model collaborator. Stream opens
// one streaming request and invokes onEvent for every demultiplexed
// event before returning the materialized final turn. Complete is the
// non-streaming variant used as a one-shot fallback.
type ModelProvider interface {
	Stream(ctx context.Context, req ChatRequest, onEvent func(StreamEvent)) (Turn, error)
	Complete(ctx context.Context, req ChatRequest) (Turn, error)
}

// ToolRegistry is the tool-execution collaborator: named tools taking
// JSON arguments and returning text. CallTool returns an error on
// failure; callers decide how failures fold back into the protocol.
type ToolRegistry interface {
	GetTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args string) (string, error)
}

// MemoryStore is the persistent memory collaborator. All durable state
// lives behind it; reads may lag writes (eventual consistency).
type MemoryStore interface {
	Available() bool
	Add(ctx context.Context, messages []Message, userID string, metadata map[string]any) error
	Search(ctx context.Context, query, userID string, limit int) ([]MemoryRecord, error)
	List(ctx context.Context, userID string, page, pageSize int) ([]MemoryRecord, error)
	Delete(ctx context.Context, id string) error
	BatchDelete(ctx context.Context, ids []string) error
}

// EventSink receives display side effects from the engine. It is a pure
// consumer: no return values, must never block the turn for long.
type EventSink interface {
	ToolStarted(name string)
	ToolFinished(name string, d time.Duration, ok bool)
	ThinkingStarted()
	ThinkingDelta(text string)
	ThinkingFinished()
	TextDelta(text string)
	Panel(title, body string)
	Info(msg string)
	Error(title string, err error)
}
