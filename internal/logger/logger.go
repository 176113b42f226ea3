package logger

import (
	"io"
	"log/slog"
	"os"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DefaultLogFile is where OpenWriter appends when Output is "file".
const DefaultLogFile = "spec-test-bot.log"

// OpenWriter resolves the configured log destination. A file destination
// that cannot be opened falls back to stderr so records are not silently
// dropped.
func OpenWriter(cfg Config) io.Writer {
	return openWriter(cfg, DefaultLogFile)
}

func openWriter(cfg Config, path string) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			slog.Warn("cannot open log file, falling back to stderr", "path", path, "error", err)
			return os.Stderr
		}
		return f
	default:
		return os.Stdout
	}
}

// NewLogger builds a slog logger from the given configuration. The logger is
// passed explicitly into every component so that request- and task-scoped
// attributes (delivery id, task name) can be attached with logger.With.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		default:
			output = os.Stdout
		}
	}

	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = new(slog.Level)
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
