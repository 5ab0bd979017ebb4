package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "clubchat",
		Short:         "Membership-club chat assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a yaml config file (environment overrides it)")

	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newChatCmd(ctx))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Development output for the TUI
// would corrupt the screen, so the chat command logs to a file instead.
func newLogger(toFile string) (*zap.Logger, error) {
	if toFile == "" {
		return zap.NewProduction()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{toFile}
	cfg.ErrorOutputPaths = []string{toFile}
	return cfg.Build()
}

// loadEnv pulls in .env when present; missing files are fine.
func loadEnv(logger *zap.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}
}
