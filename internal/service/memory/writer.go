package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/pkg/log"
)

const defaultQueueSize = 64

var boilerplatePhrases = []string{
	"i don't have", "i don't know", "based on the information i have",
	"according to what you've told me", "from what i can see",
	"hello", "hi there", "how can i help",
}

type writeJob struct {
	messages []core.Message
	metadata map[string]any
}

// Writer persists memory records off the interactive path. Jobs go
// through a bounded queue drained by a single worker; when the queue is
// full new jobs are dropped with a log line. Store failures are logged
// and swallowed, persistence is at-most-once-effort.
type Writer struct {
	store  core.MemoryStore
	userID string
	jobs   chan writeJob
	done   chan struct{}
}

func NewWriter(store core.MemoryStore, userID string) *Writer {
	return &Writer{
		store:  store,
		userID: userID,
		jobs:   make(chan writeJob, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

func (w *Writer) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("starting memory writer")

	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-w.jobs:
			if err := w.store.Add(ctx, job.messages, w.userID, job.metadata); err != nil {
				logger.Warn().Err(err).Msg("background memory write failed")
			}
		}
	}
}

func (w *Writer) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
	case <-ctx.Done():
	}
	return nil
}

// StoreConversation enqueues a user/assistant exchange. Callers gate
// with ShouldStoreConversation first.
func (w *Writer) StoreConversation(ctx context.Context, userInput, assistantText string) {
	w.enqueue(ctx, writeJob{
		messages: []core.Message{
			{Role: core.RoleUser, Content: userInput},
			{Role: core.RoleAssistant, Content: assistantText},
		},
		metadata: map[string]any{
			"type":      core.MemoryConversation,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// StoreToolSuccess enqueues a successful tool invocation as a usage
// pattern for later recall.
func (w *Writer) StoreToolSuccess(ctx context.Context, toolName, task, result string) {
	w.enqueue(ctx, writeJob{
		messages: []core.Message{
			{Role: core.RoleUser, Content: fmt.Sprintf("I used the %s tool for: %s", toolName, task)},
			{Role: core.RoleAssistant, Content: fmt.Sprintf("Successfully executed %s. %s", toolName, clip(result, 200))},
		},
		metadata: map[string]any{
			"type":           core.MemoryToolSuccess,
			"tool":           toolName,
			"task":           task,
			"result_summary": clip(result, 500),
			"timestamp":      time.Now().Format(time.RFC3339),
		},
	})
}

func (w *Writer) enqueue(ctx context.Context, job writeJob) {
	if !w.store.Available() {
		return
	}

	select {
	case w.jobs <- job:
	default:
		log.FromCtx(ctx).Warn().Msg("memory write queue full, dropping job")
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// ShouldStoreConversation filters out exchanges too short or too
// low-information to be worth a memory record.
func ShouldStoreConversation(userInput, assistantText string) bool {
	if len(userInput) <= 20 || len(assistantText) <= 50 {
		return false
	}

	lower := strings.ToLower(assistantText)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
