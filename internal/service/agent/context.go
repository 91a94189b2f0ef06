package agent

import (
	"context"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sandevgo/chainbot/internal/config"
	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/pkg/log"
)

const (
	minRecallInputLen = 10
	maxRecallResults  = 5
	tokenEncoding     = "cl100k_base"
)

// Recall is a paid, latency-bearing remote call, so it only fires when
// the user signals intent to reference past information.
var recallKeywords = []string{
	"remember", "recall", "told you", "discussed",
	"my", "me", "i am", "name", "preferences",
}

type Recaller interface {
	Recall(ctx context.Context, query string, max int) []core.MemoryRecord
}

// Assembler produces the bounded, memory-augmented message sequence
// sent to the model: message-count truncation, token-budget trim, then
// optional recalled-memory injection into the final user message.
type Assembler struct {
	cfg     *config.AppConfig
	recall  Recaller
	encoder *tiktoken.Tiktoken

	now func() time.Time
}

func NewAssembler(cfg *config.AppConfig, recall Recaller) *Assembler {
	// Without an encoding the assembler still works, it just skips the
	// token-budget trim.
	encoder, _ := tiktoken.GetEncoding(tokenEncoding)

	return &Assembler{
		cfg:     cfg,
		recall:  recall,
		encoder: encoder,
		now:     time.Now,
	}
}

func (a *Assembler) Assemble(ctx context.Context, sess *Session, userInput string) []core.Message {
	msgs := truncate(sess.Transcript(), a.cfg.ContextWindowSize)
	msgs = a.trimToBudget(ctx, msgs)

	if block := a.memoryBlock(ctx, sess, userInput); block != "" {
		last := len(msgs) - 1
		if last >= 0 && msgs[last].Role == core.RoleUser && len(msgs[last].Blocks) == 0 {
			msgs[last].Content = msgs[last].Content + "\n\n" + block
		}
	}

	return msgs
}

// truncate keeps all system messages plus the most recent max
// non-system messages, never duplicating a message.
func truncate(transcript []core.Message, max int) []core.Message {
	if len(transcript) <= max {
		return transcript
	}

	var result []core.Message
	for _, msg := range transcript {
		if msg.Role == core.RoleSystem {
			result = append(result, msg)
		}
	}

	for _, msg := range transcript[len(transcript)-max:] {
		if msg.Role != core.RoleSystem {
			result = append(result, msg)
		}
	}

	return result
}

// trimToBudget drops the oldest non-system messages while the estimated
// token total exceeds the configured budget. The final message always
// survives.
func (a *Assembler) trimToBudget(ctx context.Context, msgs []core.Message) []core.Message {
	if a.encoder == nil || a.cfg.ContextTokenBudget <= 0 {
		return msgs
	}

	for a.countTokens(msgs) > a.cfg.ContextTokenBudget {
		dropped := false
		for i, msg := range msgs[:len(msgs)-1] {
			if msg.Role == core.RoleSystem {
				continue
			}
			log.FromCtx(ctx).Debug().Str("role", msg.Role).Msg("dropping message over token budget")
			msgs = append(msgs[:i], msgs[i+1:]...)
			dropped = true
			break
		}
		if !dropped {
			return msgs
		}
	}

	return msgs
}

func (a *Assembler) countTokens(msgs []core.Message) int {
	total := 0
	for _, msg := range msgs {
		total += len(a.encoder.Encode(msg.Text(), nil, nil))
	}
	return total
}

func (a *Assembler) memoryBlock(ctx context.Context, sess *Session, userInput string) string {
	if !a.cfg.MemoryEnabled || !a.cfg.MemorySearch {
		return ""
	}
	if len(userInput) <= minRecallInputLen {
		return ""
	}

	lower := strings.ToLower(userInput)
	triggered := false
	for _, kw := range recallKeywords {
		if strings.Contains(lower, kw) {
			triggered = true
			break
		}
	}
	if !triggered {
		return ""
	}

	now := a.now()
	if !sess.lastMemorySearch.IsZero() && now.Sub(sess.lastMemorySearch) < a.cfg.MemorySearchCooldown {
		return ""
	}
	sess.lastMemorySearch = now

	records := a.recall.Recall(ctx, userInput, maxRecallResults)
	if len(records) == 0 {
		return ""
	}

	var lines []string
	for _, rec := range records {
		if rec.Content != "" {
			lines = append(lines, "- "+rec.Content)
		}
	}

	log.FromCtx(ctx).Debug().Int("records", len(lines)).Msg("using memory context")
	return strings.Join(lines, "\n")
}
