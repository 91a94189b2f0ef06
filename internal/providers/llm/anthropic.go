package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sandevgo/chainbot/internal/config"
	"github.com/sandevgo/chainbot/internal/core"
)

// Beta features required for interleaved thinking between tool calls.
const betaHeaders = "interleaved-thinking-2025-05-14,fine-grained-tool-streaming-2025-05-14"

const minThinkingBudget = 1024

// Anthropic implements core.ModelProvider on top of the official SDK.
type Anthropic struct {
	client anthropic.Client
	model  string
}

func NewAnthropic(cfg *config.AnthropicConfig) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithHeader("anthropic-beta", betaHeaders),
		),
		model: cfg.Model,
	}
}

func (a *Anthropic) Stream(ctx context.Context, req core.ChatRequest, onEvent func(core.StreamEvent)) (core.Turn, error) {
	params, err := a.buildParams(req)
	if err != nil {
		return core.Turn{}, err
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	msg := anthropic.Message{}

	emit := func(ev core.StreamEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return core.Turn{}, fmt.Errorf("accumulate stream event: %w", err)
		}

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			emit(core.StreamEvent{
				Type:      core.EventBlockStart,
				BlockType: variant.ContentBlock.Type,
				ToolName:  variant.ContentBlock.Name,
			})
		case anthropic.ContentBlockDeltaEvent:
			switch delta := variant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					emit(core.StreamEvent{Type: core.EventTextDelta, Text: delta.Text})
				}
			case anthropic.ThinkingDelta:
				if delta.Thinking != "" {
					emit(core.StreamEvent{Type: core.EventThinking, Text: delta.Thinking})
				}
			}
		case anthropic.ContentBlockStopEvent:
			emit(core.StreamEvent{Type: core.EventBlockStop})
		case anthropic.MessageStopEvent:
			emit(core.StreamEvent{Type: core.EventMessageStop})
		}
	}
	if err := stream.Err(); err != nil {
		return core.Turn{}, fmt.Errorf("stream: %w", err)
	}

	return fromMessage(msg), nil
}

func (a *Anthropic) Complete(ctx context.Context, req core.ChatRequest) (core.Turn, error) {
	params, err := a.buildParams(req)
	if err != nil {
		return core.Turn{}, err
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return core.Turn{}, fmt.Errorf("complete: %w", err)
	}
	return fromMessage(*msg), nil
}

func (a *Anthropic) buildParams(req core.ChatRequest) (anthropic.MessageNewParams, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(req.Messages),
	}

	if system := collectSystem(req.Messages); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	tools, err := buildTools(req.Tools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	params.Tools = tools

	if req.ThinkingBudget >= minThinkingBudget && int64(req.ThinkingBudget) < maxTokens {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(req.ThinkingBudget))
	}

	return params, nil
}

func collectSystem(messages []core.Message) string {
	var parts []string
	for _, m := range messages {
		if m.Role == core.RoleSystem && m.Text() != "" {
			parts = append(parts, m.Text())
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func buildMessages(messages []core.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == core.RoleSystem {
			continue
		}

		var blocks []anthropic.ContentBlockParamUnion
		if len(m.Blocks) == 0 {
			if m.Content == "" {
				continue
			}
			blocks = append(blocks, anthropic.NewTextBlock(m.Content))
		}
		for _, b := range m.Blocks {
			switch b.Type {
			case core.BlockText:
				if b.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				}
			case core.BlockThinking:
				if b.Signature != "" {
					blocks = append(blocks, anthropic.NewThinkingBlock(b.Signature, b.Text))
				}
			case core.BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, b.Input, b.Name))
			case core.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, false))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		if m.Role == core.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func buildTools(tools []core.Tool) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if len(t.Function.Parameters) > 0 {
			if err := json.Unmarshal(t.Function.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("tool %s: invalid schema: %w", t.Function.Name, err)
			}
		}

		var required []string
		if raw, ok := schema["required"].([]any); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}

		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Function.Name,
			Description: anthropic.String(t.Function.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: schema["properties"],
				Required:   required,
			},
		}})
	}
	return out, nil
}

func fromMessage(msg anthropic.Message) core.Turn {
	turn := core.Turn{StopReason: string(msg.StopReason)}

	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			turn.Blocks = append(turn.Blocks, core.ContentBlock{
				Type: core.BlockText,
				Text: variant.Text,
			})
		case anthropic.ThinkingBlock:
			turn.Blocks = append(turn.Blocks, core.ContentBlock{
				Type:      core.BlockThinking,
				Text:      variant.Thinking,
				Signature: variant.Signature,
			})
		case anthropic.ToolUseBlock:
			turn.Blocks = append(turn.Blocks, core.ContentBlock{
				Type:  core.BlockToolUse,
				ID:    variant.ID,
				Name:  variant.Name,
				Input: json.RawMessage(variant.Input),
			})
		}
	}
	return turn
}
