package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "info", Format: "json"}, &buf)

	log.Info("hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected attribute in output, got %q", out)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "warn", Format: "text"}, &buf)

	log.Info("should be dropped")
	log.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Errorf("info record not filtered: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestOpenWriter_FileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	w := openWriter(Config{Output: "file"}, path)

	f, ok := w.(*os.File)
	if !ok {
		t.Fatalf("expected *os.File, got %T", w)
	}
	defer f.Close()

	if _, err := f.WriteString("line\n"); err != nil {
		t.Fatalf("write to log file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file back: %v", err)
	}
	if string(data) != "line\n" {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestOpenWriter_UnopenableFileFallsBackToStderr(t *testing.T) {
	// A directory cannot be opened for appending.
	w := openWriter(Config{Output: "file"}, t.TempDir())

	if w != os.Stderr {
		t.Errorf("expected stderr fallback, got %T", w)
	}
}

func TestNewLogger_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "bogus", Format: "text"}, &buf)

	log.Debug("debug line")
	log.Info("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Errorf("debug should be filtered at default level: %q", out)
	}
	if !strings.Contains(out, "info line") {
		t.Errorf("info record missing: %q", out)
	}
}
