package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sandevgo/chainbot/internal/config"
	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/internal/providers/llm"
	"github.com/sandevgo/chainbot/internal/providers/mcp"
	memclient "github.com/sandevgo/chainbot/internal/providers/memory"
	"github.com/sandevgo/chainbot/internal/service/agent"
	"github.com/sandevgo/chainbot/internal/service/command"
	"github.com/sandevgo/chainbot/internal/service/memory"
	"github.com/sandevgo/chainbot/internal/service/ui"
	"github.com/sandevgo/chainbot/internal/storage/sqlite"
	"github.com/sandevgo/chainbot/internal/transport/cli"
	"github.com/sandevgo/chainbot/pkg/log"
	"github.com/sandevgo/chainbot/pkg/srv"
)

func NewServices(ctx context.Context, stop context.CancelFunc) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewAnthropicConfig(ctx)
	memCfg := config.NewMemoryConfig(ctx)

	// 2. Memory store (remote service or local SQLite)
	store, cleanup, err := initStore(ctx, appCfg, memCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize memory store")
	}
	if cleanup != nil {
		services = append(services, srv.NewCleanup(cleanup))
	}

	// 3. Model provider
	provider := llm.NewAnthropic(llmCfg)

	// 4. Tool registry (native tools + MCP servers)
	mcpService, err := initMCP(appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize mcp service")
	}
	services = append(services, mcpService)

	// 5. Memory query router and background writer
	router := memory.NewRouter(store, appCfg.MemoryUserID)
	writer := memory.NewWriter(store, appCfg.MemoryUserID)
	services = append(services, writer)

	// 6. Turn engine
	sink := ui.NewConsole()
	assembler := agent.NewAssembler(appCfg, router)
	executor := agent.NewExecutor(provider, sink)
	bridge := agent.NewBridge(mcpService, sink)
	ag := agent.NewAgent(appCfg, llmCfg, assembler, executor, bridge, mcpService, writer)

	// 7. Session seeded with the optional system prompt file
	seed := memory.NewSysPrompt(filepath.Join(appCfg.GetRuntimePath(), "system_prompt.md")).Build()
	session := agent.NewSession(seed...)

	// 8. Slash commands
	cmdRouter := command.New(command.NewCommands(mcpService, store, router, appCfg.MemoryUserID))

	// 9. Transport
	rl, err := cli.NewReadLine(appCfg, ag, cmdRouter, sink, session)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize prompt")
	}
	services = append(services, &promptService{rl: rl, stop: stop})

	return services
}

func initStore(ctx context.Context, appCfg *config.AppConfig, memCfg *config.MemoryConfig) (core.MemoryStore, func() error, error) {
	if memCfg.IsRemote() {
		log.FromCtx(ctx).Info().Str("url", memCfg.BaseURL).Msg("using remote memory service")
		return memclient.NewClient(memCfg), nil, nil
	}

	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return sqlite.NewMemoriesRepo(db), db.Close, nil
}

func initMCP(cfg *config.AppConfig) (*mcp.Service, error) {
	return mcp.NewService(
		cfg.GetRuntimePath(),
		mcp.NewPool(),
		mcp.NewRegistry(mcp.NewFileStorage(cfg.GetMCPConfigPath())),
		mcp.NewToolCache(),
	)
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}

// promptService adapts the interactive prompt to the service runner.
// When the user exits the prompt the whole process shuts down.
type promptService struct {
	rl   *cli.ReadLine
	stop context.CancelFunc
}

func (p *promptService) Start(ctx context.Context) error {
	defer p.stop()
	if err := p.rl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (p *promptService) Shutdown(ctx context.Context) error {
	return p.rl.Shutdown(ctx)
}
