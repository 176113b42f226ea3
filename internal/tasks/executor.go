// Package tasks executes previously dispatched tasks. Execution happens on
// the slow path, behind the queue, and re-establishes provider credentials
// per task; nothing is shared with the process that enqueued the work.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/speclabs/spec-test-bot/internal/core"
	gh "github.com/speclabs/spec-test-bot/internal/github"
)

// reactionContent is the reaction added to comments that mention the bot.
const reactionContent = "+1"

// Executor routes tasks to their side-effecting operations. Each execution
// builds a fresh installation-scoped client from the broker; credentials
// live exactly as long as the task.
type Executor struct {
	broker gh.Broker
	checks *gh.CheckRunner
	logger *slog.Logger
}

var _ core.Executor = (*Executor)(nil)

// NewExecutor creates a task executor.
func NewExecutor(broker gh.Broker, checks *gh.CheckRunner, logger *slog.Logger) *Executor {
	return &Executor{broker: broker, checks: checks, logger: logger}
}

// Execute runs one task. Errors surface to the caller so the queue broker
// can retry the task; tasks that can never succeed (unknown names, undecodable
// parameters) are dropped with a warning instead, so a poison pill cannot
// retry-loop the queue forever.
func (e *Executor) Execute(ctx context.Context, task core.Task) error {
	logger := e.logger.With("task", string(task.Name))

	switch task.Name {
	case core.TaskCreateCheck:
		var p core.CreateCheckParams
		if err := json.Unmarshal(task.Parameters, &p); err != nil {
			logger.Warn("dropping task with undecodable parameters", "error", err)
			return nil
		}
		client, err := e.broker.InstallationClient(ctx, p.InstallationID)
		if err != nil {
			return fmt.Errorf("authenticate installation %d: %w", p.InstallationID, err)
		}
		return e.checks.Run(ctx, client, p)

	case core.TaskReactToComment:
		var p core.ReactToCommentParams
		if err := json.Unmarshal(task.Parameters, &p); err != nil {
			logger.Warn("dropping task with undecodable parameters", "error", err)
			return nil
		}
		client, err := e.broker.InstallationClient(ctx, p.InstallationID)
		if err != nil {
			return fmt.Errorf("authenticate installation %d: %w", p.InstallationID, err)
		}
		if err := client.CreateCommentReaction(ctx, p.Owner, p.Repo, p.CommentID, reactionContent); err != nil {
			return fmt.Errorf("react to comment %d: %w", p.CommentID, err)
		}
		logger.Info("reacted to comment", "owner", p.Owner, "repo", p.Repo, "comment_id", p.CommentID)
		return nil

	default:
		logger.Warn("unexpected task name, dropping")
		return nil
	}
}
