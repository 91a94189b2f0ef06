package memory

import (
	"os"

	"github.com/sandevgo/chainbot/internal/core"
)

// SysPrompt builds the leading system messages from optional prompt
// files in the runtime directory. Missing files are simply skipped.
type SysPrompt struct {
	paths []string
}

func NewSysPrompt(paths ...string) *SysPrompt {
	return &SysPrompt{paths: paths}
}

func (p *SysPrompt) Build() []core.Message {
	messages := make([]core.Message, 0, len(p.paths))
	for _, path := range p.paths {
		content, err := os.ReadFile(path)
		if err != nil || len(content) == 0 {
			continue
		}
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: string(content)})
	}
	return messages
}
