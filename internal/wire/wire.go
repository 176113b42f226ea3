//go:build wireinject
// +build wireinject

package wire

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/wire"

	"github.com/speclabs/spec-test-bot/internal/app"
	"github.com/speclabs/spec-test-bot/internal/config"
	"github.com/speclabs/spec-test-bot/internal/logger"
)

func InitializeApp(ctx context.Context) (*app.App, error) {
	wire.Build(
		app.NewApp,
		config.LoadConfig,
		provideLoggerConfig,
		provideLogWriter,
		provideSlogLogger,
	)
	return &app.App{}, nil
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	return logger.OpenWriter(cfg.Logging)
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}
