package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/chainbot/internal/core"
)

type ToolsCommand struct {
	registry  core.ToolRegistry
	formatter *ResponseFormatter
}

func NewToolsCommand(registry core.ToolRegistry) core.Command {
	return &ToolsCommand{
		registry:  registry,
		formatter: NewResponseFormatter(),
	}
}

func (c *ToolsCommand) Name() string {
	return "tools"
}

func (c *ToolsCommand) Description() string {
	return "Show available tools"
}

func (c *ToolsCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	tools, err := c.registry.GetTools(ctx)
	if err != nil {
		return "", err
	}

	if len(tools) == 0 {
		return c.formatter.Combine(
			c.formatter.Info("Tools"),
			c.formatter.Label("Status", "No tools are currently available."),
			c.formatter.Tip("Check your MCP server configuration if tools should be available"),
		), nil
	}

	items := make([]string, len(tools))
	for i, tool := range tools {
		description := strings.Join(strings.Fields(tool.Function.Description), " ")
		if len(description) > 120 {
			description = description[:117] + "..."
		}
		if description == "" {
			items[i] = fmt.Sprintf("**%s**", tool.Function.Name)
			continue
		}
		items[i] = fmt.Sprintf("**%s** - %s", tool.Function.Name, description)
	}

	return c.formatter.Combine(
		c.formatter.Info("Tools"),
		c.formatter.Label("Available", fmt.Sprintf("%d", len(tools))),
		"\n",
		c.formatter.List(items),
	), nil
}
