package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/speclabs/spec-test-bot/internal/config"
	"github.com/speclabs/spec-test-bot/internal/logger"
)

var installationID int64

var rootCmd = &cobra.Command{
	Use:   "bot-cli",
	Short: "bot-cli is the command-line interface for spec-test-bot.",
	Long: `A CLI for operating the spec-test-bot GitHub App, allowing for
administrative tasks like minting installation tokens and running check
runs against a commit without going through the webhook path.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().Int64VarP(&installationID, "installation", "i", 0, "GitHub App installation ID")
}

// loadEnvironment builds the pieces every command needs: validated
// configuration and a logger writing to stderr so command output on
// stdout stays clean.
func loadEnvironment() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger(cfg.Logging, cliLogWriter(cfg))
	return cfg, log, nil
}

// Command output goes to stdout; log records stay off it.
func cliLogWriter(cfg *config.Config) io.Writer {
	if cfg.Logging.Output == "file" {
		return logger.OpenWriter(cfg.Logging)
	}
	return os.Stderr
}
