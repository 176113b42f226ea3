package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/speclabs/spec-test-bot/internal/github"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a short-lived installation access token",
	Long: `Mint a short-lived installation access token for the configured
GitHub App. The token is printed to stdout and can be used with curl or
the gh CLI to act as the app installation.

Examples:
  bot-cli token --installation 12345678`,
	RunE: runToken,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if installationID == 0 {
		return fmt.Errorf("--installation is required")
	}

	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}

	broker := github.NewBroker(cfg.GitHubAppID, cfg.GitHubPrivateKeyPath, log)
	token, expiresAt, err := broker.InstallationToken(cmd.Context(), installationID)
	if err != nil {
		return fmt.Errorf("failed to mint installation token: %w", err)
	}

	fmt.Println(token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
