package command

import (
	"github.com/sandevgo/chainbot/internal/core"
)

func NewCommands(
	registry core.ToolRegistry,
	store core.MemoryStore,
	recaller Recaller,
	userID string,
) []core.Command {
	return []core.Command{
		NewToolsCommand(registry),
		NewMemoryCommand(store, userID),
		NewRecallCommand(recaller),
		NewRememberCommand(store, userID),
		NewForgetCommand(store),
		NewForgetAllCommand(store, userID),
	}
}
