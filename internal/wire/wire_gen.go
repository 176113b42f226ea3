// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/speclabs/spec-test-bot/internal/app"
	"github.com/speclabs/spec-test-bot/internal/config"
	"github.com/speclabs/spec-test-bot/internal/logger"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loggerConfig := cfg.Logging
	logWriter := logger.OpenWriter(loggerConfig)
	slogLogger := logger.NewLogger(loggerConfig, logWriter)

	application, err := app.NewApp(ctx, cfg, slogLogger)
	if err != nil {
		return nil, err
	}
	return application, nil
}
