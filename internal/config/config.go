package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/speclabs/spec-test-bot/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	ServerPort string
	Logging    logger.Config

	GitHubAppID          int64
	GitHubPrivateKeyPath string

	// GitHubWebhookSecret authenticates inbound webhook deliveries. An empty
	// value disables verification and is only acceptable for local development.
	GitHubWebhookSecret string

	// TaskQueueSecret authenticates envelopes coming back from the task queue.
	// It is independent from the webhook secret and must never share its value.
	TaskQueueSecret    string
	TaskQueueDriver    string
	TaskQueueTopic     string
	TaskQueueTargetURL string

	BotMention          string
	CheckDetailsBaseURL string
	CheckConcludeDelay  time.Duration
}

// LoadConfig reads configuration from environment variables and an optional
// .env file, sets defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/spec-test-bot.private-key.pem")
	viper.SetDefault("TASK_QUEUE_DRIVER", "http")
	viper.SetDefault("TASK_QUEUE_TOPIC", "spec-test-bot-tasks")
	viper.SetDefault("TASK_QUEUE_TARGET_URL", "http://localhost:8080/api/task")
	viper.SetDefault("BOT_MENTION", "@spec-test-bot")
	viper.SetDefault("CHECK_DETAILS_BASE_URL", "https://app.spec-test-bot.dev")
	viper.SetDefault("CHECK_CONCLUDE_DELAY", "0s")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	if viper.GetInt64("GITHUB_APP_ID") == 0 {
		return nil, fmt.Errorf("GITHUB_APP_ID must be set")
	}

	webhookSecret := viper.GetString("GITHUB_WEBHOOK_SECRET")
	taskSecret := viper.GetString("TASK_QUEUE_SECRET")
	if webhookSecret != "" && webhookSecret == taskSecret {
		return nil, fmt.Errorf("GITHUB_WEBHOOK_SECRET and TASK_QUEUE_SECRET must not share a value")
	}

	driver := viper.GetString("TASK_QUEUE_DRIVER")
	switch driver {
	case "http", "gochannel":
	default:
		return nil, fmt.Errorf("unsupported TASK_QUEUE_DRIVER: %s", driver)
	}

	concludeDelay, err := time.ParseDuration(viper.GetString("CHECK_CONCLUDE_DELAY"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECK_CONCLUDE_DELAY: %w", err)
	}

	return &Config{
		ServerPort: viper.GetString("SERVER_PORT"),
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		GitHubAppID:          viper.GetInt64("GITHUB_APP_ID"),
		GitHubPrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		GitHubWebhookSecret:  webhookSecret,
		TaskQueueSecret:      taskSecret,
		TaskQueueDriver:      driver,
		TaskQueueTopic:       viper.GetString("TASK_QUEUE_TOPIC"),
		TaskQueueTargetURL:   viper.GetString("TASK_QUEUE_TARGET_URL"),
		BotMention:           viper.GetString("BOT_MENTION"),
		CheckDetailsBaseURL:  viper.GetString("CHECK_DETAILS_BASE_URL"),
		CheckConcludeDelay:   concludeDelay,
	}, nil
}
