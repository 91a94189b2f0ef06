package core

import "encoding/json"

const (
	ChainName          = "ChainBot"
	ChainUserAgent     = "ChainBot-Agent/0.1"
	ChainRepositoryURL = "https://github.com/sandevgo/chainbot"
	ChainVersion       = "0.1.0"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Content block types as they appear on the Anthropic wire.
const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// ContentBlock is a tagged union over text, thinking, tool_use and
// tool_result blocks. Only the fields matching Type are populated.
type ContentBlock struct {
	Type string `json:"type"`

	// text / thinking
	Text      string `json:"text,omitempty"`
	Signature string `json:"signature,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Message is one entry of a conversation transcript. Plain text lives in
// Content; structured turns (tool calls, tool results, thinking) carry
// Blocks instead. A transcript is append-only and owned by the agent for
// the lifetime of a session.
type Message struct {
	Role    string         `json:"role"`
	Content string         `json:"content,omitempty"`
	Blocks  []ContentBlock `json:"blocks,omitempty"`
}

func NewTextMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// Text returns the plain text of the message, concatenating text blocks
// when the message is block-structured.
func (m Message) Text() string {
	if len(m.Blocks) == 0 {
		return m.Content
	}
	var out string
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// Turn is the materialized final message of one model turn.
type Turn struct {
	Blocks     []ContentBlock `json:"blocks"`
	StopReason string         `json:"stop_reason,omitempty"`
}

func (t Turn) Text() string {
	var out string
	for _, b := range t.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

func (t Turn) Thinking() string {
	var out string
	for _, b := range t.Blocks {
		if b.Type == BlockThinking {
			out += b.Text
		}
	}
	return out
}

func (t Turn) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range t.Blocks {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}
