package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/chainbot/internal/config"
	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/internal/service/memory"
	"github.com/sandevgo/chainbot/pkg/log"
)

const maxRoundsMessage = "Max tool rounds exceeded. The last tool results were not followed up; try a narrower request."

// MemoryWriter receives noteworthy exchanges for background
// persistence. Implementations must never block the caller.
type MemoryWriter interface {
	StoreConversation(ctx context.Context, userInput, assistantText string)
	StoreToolSuccess(ctx context.Context, toolName, task, result string)
}

// Agent is the turn orchestrator: it drives the full multi-round
// protocol of one user utterance, from context assembly through model
// turns and tool rounds to the final answer.
type Agent struct {
	cfg       *config.AppConfig
	llmCfg    *config.AnthropicConfig
	assembler *Assembler
	executor  *Executor
	bridge    *Bridge
	registry  core.ToolRegistry
	writer    MemoryWriter

	now   func() time.Time
	sleep func(time.Duration)
}

func NewAgent(
	cfg *config.AppConfig,
	llmCfg *config.AnthropicConfig,
	assembler *Assembler,
	executor *Executor,
	bridge *Bridge,
	registry core.ToolRegistry,
	writer MemoryWriter,
) *Agent {
	return &Agent{
		cfg:       cfg,
		llmCfg:    llmCfg,
		assembler: assembler,
		executor:  executor,
		bridge:    bridge,
		registry:  registry,
		writer:    writer,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Respond runs one full orchestration for a user utterance. The user
// message is appended to the session transcript first and the final
// assistant message last; tool rounds in between append assistant
// tool_use messages and user tool_result messages pairwise.
//
// Tool rounds are an explicit loop with a hard cap, not recursion.
// Exceeding the cap yields a degraded terminal turn instead of an error.
func (a *Agent) Respond(ctx context.Context, sess *Session, userInput string) (core.Turn, error) {
	logger := log.FromCtx(ctx)

	sess.Append(core.NewTextMessage(core.RoleUser, userInput))

	tools, err := a.registry.GetTools(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list tools, continuing without them")
		tools = nil
	}

	for round := 0; round < a.cfg.MaxToolRounds; round++ {
		a.throttle(sess)

		req := core.ChatRequest{
			Messages:       a.assembler.Assemble(ctx, sess, userInput),
			Tools:          tools,
			MaxTokens:      a.llmCfg.MaxTokens,
			ThinkingBudget: a.llmCfg.ThinkingBudget,
		}

		turn, err := a.executor.RunTurn(ctx, req)
		if err != nil {
			return core.Turn{}, fmt.Errorf("model turn failed: %w", err)
		}

		uses := turn.ToolUses()
		if len(uses) == 0 {
			text := turn.Text()
			if a.cfg.MemoryLearning && memory.ShouldStoreConversation(userInput, text) {
				a.writer.StoreConversation(ctx, userInput, text)
			}
			sess.Append(core.NewTextMessage(core.RoleAssistant, text))
			return turn, nil
		}

		sess.Append(core.Message{Role: core.RoleAssistant, Blocks: turn.Blocks})
		sess.Append(core.Message{Role: core.RoleUser, Blocks: a.runTools(ctx, uses)})

		logger.Debug().Int("round", round+1).Int("tools", len(uses)).Msg("continuing with tool results")
		a.sleep(a.cfg.ToolRoundPause)
	}

	logger.Warn().Int("max_rounds", a.cfg.MaxToolRounds).Msg("tool round cap reached")

	turn := core.Turn{
		Blocks:     []core.ContentBlock{{Type: core.BlockText, Text: maxRoundsMessage}},
		StopReason: "max_tool_rounds",
	}
	sess.Append(core.NewTextMessage(core.RoleAssistant, maxRoundsMessage))
	return turn, nil
}

// runTools bridges every tool_use in order and returns one tool_result
// block per use, tagged with the matching id.
func (a *Agent) runTools(ctx context.Context, uses []core.ContentBlock) []core.ContentBlock {
	results := make([]core.ContentBlock, 0, len(uses))

	for _, use := range uses {
		args := string(use.Input)
		res := a.bridge.Invoke(ctx, use.Name, args)

		if res.OK && a.cfg.MemoryLearning {
			task := fmt.Sprintf("%s with args: %s", use.Name, clipText(args, 100))
			a.writer.StoreToolSuccess(ctx, use.Name, task, res.Text)
		}

		results = append(results, core.ContentBlock{
			Type:      core.BlockToolResult,
			ToolUseID: use.ID,
			Content:   res.Text,
		})
	}

	return results
}

// throttle enforces minimum spacing between model calls against the
// session's last-API-call watermark.
func (a *Agent) throttle(sess *Session) {
	now := a.now()
	if !sess.lastAPICall.IsZero() {
		if since := now.Sub(sess.lastAPICall); since < a.cfg.RateLimitDelay {
			a.sleep(a.cfg.RateLimitDelay - since)
		}
	}
	sess.lastAPICall = a.now()
}

func clipText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
