package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/pkg/log"
)

// ToolResult is the outcome of one bridged tool invocation. It lives
// only for the orchestration step that produced it.
type ToolResult struct {
	Text     string
	Duration time.Duration
	OK       bool
}

// Bridge invokes tools through the registry, timing each call and
// reporting start/end to the sink. Failures come back as error-tagged
// result text, never as an error: every tool_use must get a tool_result
// regardless of how the tool fared.
type Bridge struct {
	registry core.ToolRegistry
	sink     core.EventSink
}

func NewBridge(registry core.ToolRegistry, sink core.EventSink) *Bridge {
	return &Bridge{
		registry: registry,
		sink:     sink,
	}
}

func (b *Bridge) Invoke(ctx context.Context, name, args string) ToolResult {
	b.sink.ToolStarted(name)
	start := time.Now()

	out, err := b.registry.CallTool(ctx, name, args)
	duration := time.Since(start)

	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("tool", name).Msg("tool execution failed")
		b.sink.ToolFinished(name, duration, false)
		return ToolResult{
			Text:     fmt.Sprintf("<error>Tool %s execution failed: %v</error>", name, err),
			Duration: duration,
		}
	}

	b.sink.ToolFinished(name, duration, true)
	return ToolResult{
		Text:     truncateResult(out),
		Duration: duration,
		OK:       true,
	}
}

func truncateResult(input string) string {
	const maxLen = 2000
	if len(input) <= maxLen {
		return input
	}

	head := input[:500]
	tail := input[len(input)-(maxLen-500):]
	return fmt.Sprintf("%s\n\n... [TRUNCATED %d bytes] ...\n\n%s", head, len(input)-maxLen, tail)
}
