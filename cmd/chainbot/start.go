package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sandevgo/chainbot/pkg/log"
	"github.com/sandevgo/chainbot/pkg/srv"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the interactive chat",
	Long:  `Initializes the memory store, tools and background workers, then opens the interactive prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting chainbot")

		services := NewServices(ctx, stop)

		srv.StartServices(ctx, services)

		// Wait for shutdown signal or prompt exit
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("chainbot has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
