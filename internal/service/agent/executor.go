package agent

import (
	"context"
	"fmt"

	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/pkg/log"
)

// Executor runs one model turn. It opens a single streaming request,
// forwards the demultiplexed events to the sink, and returns the
// materialized turn. A stream failure triggers exactly one non-streaming
// fallback with identical parameters; a fallback failure is terminal.
type Executor struct {
	provider core.ModelProvider
	sink     core.EventSink

	inThinking bool
}

func NewExecutor(provider core.ModelProvider, sink core.EventSink) *Executor {
	return &Executor{
		provider: provider,
		sink:     sink,
	}
}

func (e *Executor) RunTurn(ctx context.Context, req core.ChatRequest) (core.Turn, error) {
	e.inThinking = false

	turn, err := e.provider.Stream(ctx, req, e.forward)
	if err == nil {
		return turn, nil
	}

	log.FromCtx(ctx).Warn().Err(err).Msg("stream failed, falling back to non-streaming call")
	e.sink.Error("Stream error", err)

	turn, err = e.provider.Complete(ctx, req)
	if err != nil {
		return core.Turn{}, fmt.Errorf("fallback completion failed: %w", err)
	}
	return turn, nil
}

func (e *Executor) forward(ev core.StreamEvent) {
	switch ev.Type {
	case core.EventBlockStart:
		switch ev.BlockType {
		case core.BlockToolUse:
			e.sink.ToolStarted(ev.ToolName)
		case core.BlockThinking:
			e.sink.ThinkingStarted()
			e.inThinking = true
		}
	case core.EventThinking:
		e.sink.ThinkingDelta(ev.Text)
	case core.EventTextDelta:
		e.sink.TextDelta(ev.Text)
	case core.EventBlockStop:
		if e.inThinking {
			e.sink.ThinkingFinished()
			e.inThinking = false
		}
	}
}
