package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speclabs/spec-test-bot/internal/core"
	"github.com/speclabs/spec-test-bot/internal/github"
)

var (
	checkOwner  string
	checkRepo   string
	checkSHA    string
	checkBranch string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a check run lifecycle against a commit",
	Long: `Run the full check run lifecycle against a commit: create the run
as in_progress, evaluate the commit, and conclude it. This exercises the
same code path the webhook-driven flow uses, without going through the
task queue.

Examples:
  bot-cli check --installation 12345678 --owner octocat --repo hello-world --sha deadbeef`,
	RunE: runCheck,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	checkCmd.Flags().StringVar(&checkOwner, "owner", "", "repository owner")
	checkCmd.Flags().StringVar(&checkRepo, "repo", "", "repository name")
	checkCmd.Flags().StringVar(&checkSHA, "sha", "", "head commit SHA")
	checkCmd.Flags().StringVar(&checkBranch, "branch", "", "head branch name")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if installationID == 0 {
		return fmt.Errorf("--installation is required")
	}
	if checkOwner == "" || checkRepo == "" || checkSHA == "" {
		return fmt.Errorf("--owner, --repo and --sha are required")
	}

	cfg, log, err := loadEnvironment()
	if err != nil {
		return err
	}

	broker := github.NewBroker(cfg.GitHubAppID, cfg.GitHubPrivateKeyPath, log)
	client, err := broker.InstallationClient(cmd.Context(), installationID)
	if err != nil {
		return fmt.Errorf("failed to authenticate installation %d: %w", installationID, err)
	}

	checks := github.NewCheckRunner(cfg.CheckDetailsBaseURL, cfg.CheckConcludeDelay, github.ResultsLinkPolicy{}, log)
	params := core.CreateCheckParams{
		InstallationID: installationID,
		Owner:          checkOwner,
		Repo:           checkRepo,
		HeadBranch:     checkBranch,
		HeadSHA:        checkSHA,
	}
	if err := checks.Run(cmd.Context(), client, params); err != nil {
		return fmt.Errorf("check run failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "check run %q concluded for %s/%s@%s\n",
		github.CheckRunName, checkOwner, checkRepo, checkSHA)
	return nil
}
