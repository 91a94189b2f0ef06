package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/chainbot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"CHAINBOT_RUNTIME_PATH" envDefault:".chainbot"`

	// Context Management
	ContextWindowSize  int `env:"CONTEXT_WINDOW_SIZE" envDefault:"15"`
	ContextTokenBudget int `env:"CONTEXT_TOKEN_BUDGET" envDefault:"8192"`

	// Turn pacing
	RateLimitDelay time.Duration `env:"RATE_LIMIT_DELAY" envDefault:"1s"`
	ToolRoundPause time.Duration `env:"TOOL_ROUND_PAUSE" envDefault:"500ms"`
	MaxToolRounds  int           `env:"MAX_TOOL_ROUNDS" envDefault:"10"`

	// Memory features
	MemoryEnabled        bool          `env:"MEMORY_ENABLED" envDefault:"true"`
	MemorySearch         bool          `env:"MEMORY_SEARCH" envDefault:"true"`
	MemoryLearning       bool          `env:"MEMORY_LEARNING" envDefault:"true"`
	MemorySearchCooldown time.Duration `env:"MEMORY_SEARCH_COOLDOWN" envDefault:"30s"`
	MemoryUserID         string        `env:"MEMORY_USER_ID" envDefault:"chainbot_user"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "chainbot.db")
}

func (c AppConfig) GetMCPConfigPath() string {
	return filepath.Join(c.RuntimePath, "mcp_config.json")
}
