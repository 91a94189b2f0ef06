package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/chainbot/internal/core"
)

func TestExecutorForwardsStreamEvents(t *testing.T) {
	provider := &scriptedProvider{
		turns: []core.Turn{textTurn("hello world")},
		events: []core.StreamEvent{
			{Type: core.EventBlockStart, BlockType: core.BlockThinking},
			{Type: core.EventThinking, Text: "pondering"},
			{Type: core.EventBlockStop},
			{Type: core.EventBlockStart, BlockType: core.BlockToolUse, ToolName: "fetch_url"},
			{Type: core.EventBlockStop},
			{Type: core.EventTextDelta, Text: "hello "},
			{Type: core.EventTextDelta, Text: "world"},
			{Type: core.EventMessageStop},
		},
	}

	sink := &recordingSink{}
	e := NewExecutor(provider, sink)

	turn, err := e.RunTurn(context.Background(), core.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", turn.Text())

	assert.Equal(t, []string{
		"think_start",
		"think:pondering",
		"think_end",
		"tool_start:fetch_url",
		"text:hello ",
		"text:world",
	}, sink.events)
}

func TestExecutorFallsBackExactlyOnce(t *testing.T) {
	provider := &scriptedProvider{
		turns:     []core.Turn{textTurn("from the fallback path")},
		streamErr: errors.New("connection reset"),
	}

	e := NewExecutor(provider, &recordingSink{})

	turn, err := e.RunTurn(context.Background(), core.ChatRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.streamCalls)
	assert.Equal(t, 1, provider.completeCalls)
	assert.Equal(t, "from the fallback path", turn.Text())
}

func TestExecutorFallbackFailureIsTerminal(t *testing.T) {
	provider := &scriptedProvider{
		turns:       []core.Turn{textTurn("unreachable")},
		streamErr:   errors.New("connection reset"),
		completeErr: errors.New("still down"),
	}

	e := NewExecutor(provider, &recordingSink{})

	_, err := e.RunTurn(context.Background(), core.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback completion failed")
	assert.Equal(t, 1, provider.completeCalls)
}

func TestExecutorFallbackKeepsRequest(t *testing.T) {
	provider := &scriptedProvider{
		turns:     []core.Turn{textTurn("ok")},
		streamErr: errors.New("boom"),
	}

	e := NewExecutor(provider, &recordingSink{})

	req := core.ChatRequest{MaxTokens: 4096, ThinkingBudget: 1024}
	_, err := e.RunTurn(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, provider.reqs, 2)
	assert.Equal(t, provider.reqs[0], provider.reqs[1])
}
