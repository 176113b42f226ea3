// Package app initializes and orchestrates the main components of the
// spec-test-bot application. It wires together the configuration, task
// queue, GitHub clients, and HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/speclabs/spec-test-bot/internal/config"
	"github.com/speclabs/spec-test-bot/internal/core"
	"github.com/speclabs/spec-test-bot/internal/github"
	"github.com/speclabs/spec-test-bot/internal/queue"
	"github.com/speclabs/spec-test-bot/internal/server"
	"github.com/speclabs/spec-test-bot/internal/server/handler"
	"github.com/speclabs/spec-test-bot/internal/tasks"
)

// App holds the main application components.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	server *server.Server
	queue  *queue.TaskQueue
	runner *queue.Runner // non-nil only with the gochannel driver
	logger *slog.Logger
}

// NewApp sets up the application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing spec-test-bot",
		"app_id", cfg.GitHubAppID,
		"queue_driver", cfg.TaskQueueDriver,
		"bot_mention", cfg.BotMention)

	if cfg.GitHubWebhookSecret == "" {
		logger.Warn("GITHUB_WEBHOOK_SECRET is not set, webhook signatures will not be verified")
	}
	if cfg.TaskQueueSecret == "" {
		logger.Warn("TASK_QUEUE_SECRET is not set, task signatures will not be verified")
	}

	broker := github.NewBroker(cfg.GitHubAppID, cfg.GitHubPrivateKeyPath, logger)
	checks := github.NewCheckRunner(cfg.CheckDetailsBaseURL, cfg.CheckConcludeDelay, github.ResultsLinkPolicy{}, logger)
	executor := tasks.NewExecutor(broker, checks, logger)
	taskHandler := handler.NewTaskHandler(cfg.TaskQueueSecret, executor, logger)

	queueCfg := queue.Config{
		Driver:    cfg.TaskQueueDriver,
		Topic:     cfg.TaskQueueTopic,
		TargetURL: cfg.TaskQueueTargetURL,
	}

	var (
		taskQueue *queue.TaskQueue
		runner    *queue.Runner
	)
	switch cfg.TaskQueueDriver {
	case "gochannel":
		taskQueue, runner = queue.NewLocalQueue(queueCfg, cfg.TaskQueueSecret, taskHandler.Deliver, logger)
	default:
		var err error
		taskQueue, err = queue.NewHTTPQueue(queueCfg, cfg.TaskQueueSecret, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create task queue: %w", err)
		}
	}

	classifier := core.NewClassifier(cfg.BotMention)
	webhookHandler := handler.NewWebhookHandler(cfg.GitHubWebhookSecret, classifier, taskQueue, logger)
	httpServer := server.NewServer(cfg.ServerPort, webhookHandler, taskHandler, logger)

	logger.Info("spec-test-bot initialized successfully")
	return &App{
		ctx:    ctx,
		cfg:    cfg,
		server: httpServer,
		queue:  taskQueue,
		runner: runner,
		logger: logger,
	}, nil
}

// Start runs the task runner (when configured) and the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting spec-test-bot",
		"server_port", a.cfg.ServerPort,
		"queue_driver", a.cfg.TaskQueueDriver)

	if a.runner != nil {
		if err := a.runner.Start(a.ctx); err != nil {
			a.logger.Error("failed to start task runner", "error", err)
			return err
		}
	}

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down spec-test-bot")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	if err := a.queue.Close(); err != nil {
		a.logger.Error("error closing task queue", "error", err)
	}
	if a.runner != nil {
		a.runner.Wait()
	}

	if serverErr != nil {
		a.logger.Error("spec-test-bot stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("spec-test-bot stopped successfully")
	return nil
}
