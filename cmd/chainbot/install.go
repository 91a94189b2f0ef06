package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sandevgo/chainbot/internal/config"
	"github.com/sandevgo/chainbot/pkg/env"
	"github.com/sandevgo/chainbot/pkg/log"
)

var (
	installAPIKey string
	installModel  string
)

var installCmd = &cobra.Command{
	Use:           "install",
	Short:         "Initialize the runtime directory and write a starter .env",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Setup logger
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		runtimePath := config.GetRuntimePath()
		if err := os.MkdirAll(runtimePath, 0755); err != nil {
			return fmt.Errorf("failed to create runtime directory: %w", err)
		}

		envPath := filepath.Join(runtimePath, ".env")
		if _, err := os.Stat(envPath); err == nil {
			logger.Info().Str("path", envPath).Msg(".env already exists, leaving it untouched")
			return nil
		}

		llmCfg := &config.AnthropicConfig{
			APIKey: installAPIKey,
			Model:  installModel,
		}
		content, err := env.MarshalEnv(llmCfg)
		if err != nil {
			return fmt.Errorf("failed to render .env: %w", err)
		}
		if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
			return fmt.Errorf("failed to write .env: %w", err)
		}

		// Load the newly created .env file so later commands see the values
		if err := godotenv.Load(envPath); err != nil {
			logger.Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
		}

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Installation complete! You can now run 'chainbot start'.")
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&installAPIKey, "api-key", "", "Anthropic API key to store in .env")
	installCmd.Flags().StringVar(&installModel, "model", "", "model override to store in .env")
	rootCmd.AddCommand(installCmd)
}
