package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/chainbot/internal/core"
)

const (
	statsPageSize    = 50
	recallMaxResults = 10
)

// Recaller answers routed memory queries. Lookups degrade to empty
// results instead of failing.
type Recaller interface {
	Recall(ctx context.Context, query string, max int) []core.MemoryRecord
}

type MemoryCommand struct {
	store     core.MemoryStore
	userID    string
	formatter *ResponseFormatter
}

func NewMemoryCommand(store core.MemoryStore, userID string) core.Command {
	return &MemoryCommand{
		store:     store,
		userID:    userID,
		formatter: NewResponseFormatter(),
	}
}

func (c *MemoryCommand) Name() string {
	return "memory"
}

func (c *MemoryCommand) Description() string {
	return "Show memory statistics"
}

func (c *MemoryCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if !c.store.Available() {
		return c.formatter.Combine(
			c.formatter.Info("Memory"),
			c.formatter.Label("Status", "Memory store is not available."),
		), nil
	}

	records, err := c.store.List(ctx, c.userID, 1, statsPageSize)
	if err != nil {
		return "", err
	}

	byType := map[string]int{}
	for _, r := range records {
		t := r.Type()
		if t == "" {
			t = "unknown"
		}
		byType[t]++
	}

	lines := make([]string, 0, len(byType))
	for _, t := range []string{core.MemoryConversation, core.MemoryToolSuccess, core.MemoryExplicit, core.MemoryLearning, "unknown"} {
		if n, ok := byType[t]; ok {
			lines = append(lines, fmt.Sprintf("**%s**: %d", t, n))
		}
	}

	return c.formatter.Combine(
		c.formatter.Info("Memory"),
		c.formatter.Label("Total memories", fmt.Sprintf("%d", len(records))),
		"\n",
		c.formatter.List(lines),
	), nil
}

type RecallCommand struct {
	recaller  Recaller
	formatter *ResponseFormatter
}

func NewRecallCommand(recaller Recaller) core.Command {
	return &RecallCommand{
		recaller:  recaller,
		formatter: NewResponseFormatter(),
	}
}

func (c *RecallCommand) Name() string {
	return "recall"
}

func (c *RecallCommand) Description() string {
	return "Search stored memories"
}

func (c *RecallCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Usage("/recall <query>"),
			c.formatter.Examples([]string{
				"/recall what did I do yesterday",
				"/recall my preferences",
			}),
		), nil
	}

	query := strings.Join(args, " ")
	records := c.recaller.Recall(ctx, query, recallMaxResults)
	if len(records) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Recall"),
			c.formatter.Label("Query", query),
			c.formatter.Label("Results", "No matching memories found."),
		), nil
	}

	sections := []string{
		c.formatter.Info("Recall"),
		c.formatter.Label("Query", query),
	}
	for i, r := range records {
		date := "Unknown date"
		if t, ok := r.ParseCreatedAt(); ok {
			date = t.Format("2006-01-02 15:04")
		}
		sections = append(sections, c.formatter.Section(
			"💭",
			fmt.Sprintf("Memory %d", i+1),
			fmt.Sprintf("%s\n*%s · %s · %s*", r.Content, r.Type(), date, r.ID),
		))
	}

	return c.formatter.Combine(sections...), nil
}

type RememberCommand struct {
	store     core.MemoryStore
	userID    string
	formatter *ResponseFormatter
}

func NewRememberCommand(store core.MemoryStore, userID string) core.Command {
	return &RememberCommand{
		store:     store,
		userID:    userID,
		formatter: NewResponseFormatter(),
	}
}

func (c *RememberCommand) Name() string {
	return "remember"
}

func (c *RememberCommand) Description() string {
	return "Explicitly store a memory"
}

func (c *RememberCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) == 0 {
		return c.formatter.Combine(
			c.formatter.Usage("/remember <content>"),
			c.formatter.Examples([]string{
				"/remember I prefer tabs over spaces",
			}),
		), nil
	}

	if !c.store.Available() {
		return c.formatter.Error("store memory", fmt.Errorf("memory store is not available")), nil
	}

	content := strings.Join(args, " ")
	messages := []core.Message{
		{Role: "user", Content: fmt.Sprintf("Please remember this: %s", content)},
		{Role: "assistant", Content: fmt.Sprintf("I'll remember: %s (Category: explicit)", content)},
	}
	metadata := map[string]any{
		"type":         core.MemoryExplicit,
		"category":     "explicit",
		"timestamp":    time.Now().Format(time.RFC3339),
		"user_created": true,
	}

	if err := c.store.Add(ctx, messages, c.userID, metadata); err != nil {
		return "", err
	}

	return c.formatter.Success(fmt.Sprintf("Memory stored: %s", content)), nil
}

type ForgetCommand struct {
	store     core.MemoryStore
	formatter *ResponseFormatter
}

func NewForgetCommand(store core.MemoryStore) core.Command {
	return &ForgetCommand{
		store:     store,
		formatter: NewResponseFormatter(),
	}
}

func (c *ForgetCommand) Name() string {
	return "forget"
}

func (c *ForgetCommand) Description() string {
	return "Delete one memory by id"
}

func (c *ForgetCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if len(args) != 1 {
		return c.formatter.Combine(
			c.formatter.Usage("/forget <memory-id>"),
			c.formatter.Tip("Use /recall to find memory ids"),
		), nil
	}

	if err := c.store.Delete(ctx, args[0]); err != nil {
		return "", err
	}

	return c.formatter.Success(fmt.Sprintf("Memory %s deleted", args[0])), nil
}

type ForgetAllCommand struct {
	store     core.MemoryStore
	userID    string
	formatter *ResponseFormatter
}

func NewForgetAllCommand(store core.MemoryStore, userID string) core.Command {
	return &ForgetAllCommand{
		store:     store,
		userID:    userID,
		formatter: NewResponseFormatter(),
	}
}

func (c *ForgetAllCommand) Name() string {
	return "forget-all"
}

func (c *ForgetAllCommand) Description() string {
	return "Delete all stored memories"
}

func (c *ForgetAllCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	records, err := c.store.List(ctx, c.userID, 1, statsPageSize)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Forget all"),
			c.formatter.Label("Status", "No memories to delete."),
		), nil
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if err := c.store.BatchDelete(ctx, ids); err != nil {
		return "", err
	}

	return c.formatter.Success(fmt.Sprintf("Deleted %d memories", len(ids))), nil
}
