package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecosync/bill-server-go/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLoggerStdoutOnly(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "info", LogDir: ""})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger == nil {
		t.Fatal("logger is nil")
	}
}

func TestNewLoggerInvalidRotation(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", LogDir: t.TempDir(), MaxSizeMB: 0, MaxBackups: 1, MaxAgeDays: 1})
	if err == nil {
		t.Fatal("zero max size should fail")
	}
}

func TestNewLoggerFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(config.LoggingConfig{
		Level: "debug", LogDir: dir, MaxSizeMB: 10, MaxBackups: 2, MaxAgeDays: 3,
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("test_event", "k", "v")

	if _, err := os.Stat(filepath.Join(dir, defaultLogFileName)); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}
