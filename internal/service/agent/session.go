package agent

import (
	"time"

	"github.com/sandevgo/chainbot/internal/core"
)

// Session holds the state of one conversation: the append-only
// transcript and the two rate-limit watermarks. Watermarks are
// session-scoped rather than process-global so concurrent sessions stay
// a wiring change, not a redesign.
type Session struct {
	transcript       []core.Message
	lastAPICall      time.Time
	lastMemorySearch time.Time
}

func NewSession(seed ...core.Message) *Session {
	return &Session{transcript: seed}
}

func (s *Session) Append(msgs ...core.Message) {
	s.transcript = append(s.transcript, msgs...)
}

// Transcript returns a copy so callers cannot mutate appended messages.
func (s *Session) Transcript() []core.Message {
	out := make([]core.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Len() int {
	return len(s.transcript)
}
