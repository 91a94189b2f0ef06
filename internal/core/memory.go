package core

import "time"

// Memory record types stored in metadata under the "type" key.
const (
	MemoryConversation = "conversation"
	MemoryToolSuccess  = "tool_success"
	MemoryLearning     = "learning"
	MemoryExplicit     = "explicit_memory"
)

// MemoryRecord is one entry returned by the memory collaborator. The
// service owns the records; we only read and write through the
// MemoryStore interface and never assume a write is immediately visible.
//
// CreatedAt is kept as the raw wire string because the collaborator's
// timestamps are not guaranteed to parse; use ParseCreatedAt.
type MemoryRecord struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"created_at"`
	Score     float64        `json:"score"`
	Metadata  map[string]any `json:"metadata"`
}

// Type returns the record type from metadata, or "" when absent.
func (r MemoryRecord) Type() string {
	if r.Metadata == nil {
		return ""
	}
	t, _ := r.Metadata["type"].(string)
	return t
}

// ParseCreatedAt parses the record timestamp. The second return value is
// false when the timestamp is missing or malformed.
func (r MemoryRecord) ParseCreatedAt() (time.Time, bool) {
	if r.CreatedAt == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
