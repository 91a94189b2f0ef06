package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/chainbot/pkg/log"
)

// MemoryConfig selects the memory backend. When BaseURL is empty the
// local SQLite store is used instead of the remote service.
type MemoryConfig struct {
	BaseURL string `env:"MEMORY_API_URL"`
	APIKey  string `env:"MEMORY_API_KEY"`
}

func NewMemoryConfig(ctx context.Context) *MemoryConfig {
	c := &MemoryConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Memory config")
	}
	return c
}

func (c MemoryConfig) IsRemote() bool {
	return c.BaseURL != ""
}
