package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"routemap/internal/config"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Scan completed", "endpoints", 42, "modules", "api")

	output := buf.String()
	for _, want := range []string{"[info]", "Scan completed", " | ", "endpoints=42", "modules=api"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("each record should end with a newline")
	}
}

func TestLineHandler_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With(ComponentKey, "scan")

	logger.Info("pass started", "trigger", "manual")

	output := buf.String()
	if !strings.Contains(output, "[info] scan: pass started") {
		t.Errorf("component should prefix the message, got: %s", output)
	}
	if strings.Contains(output, "component=") {
		t.Errorf("component should not be repeated as key=value, got: %s", output)
	}
}

func TestLineHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).WithGroup("index")

	logger.Info("built", "files", 3)

	if !strings.Contains(buf.String(), "index.files=3") {
		t.Errorf("group prefix missing, got: %s", buf.String())
	}
}

func TestLineHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below warn should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("warn and error should be kept, got: %s", output)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{5, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	logger.Error("dropped")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled for any level")
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewLineHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewLineHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2))
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") || !strings.Contains(buf1.String(), "warn message") {
		t.Errorf("buf1 should contain both messages, got: %s", buf1.String())
	}
	if strings.Contains(buf2.String(), "info message") {
		t.Error("buf2 should not contain info message")
	}
	if !strings.Contains(buf2.String(), "warn message") {
		t.Error("buf2 should contain warn message")
	}
}

func TestLoggerFactory_FileOutput(t *testing.T) {
	root := t.TempDir()
	level := slog.LevelWarn
	factory := NewLoggerFactory(root, config.LoggingConfig{File: true, MaxSize: "1MB", MaxBackups: 1}, &level)
	var console bytes.Buffer
	factory.stderr = &console

	logger := factory.Logger()
	logger.Info("recorded in file only")
	logger.Warn("recorded twice")
	if err := factory.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, ".routemap", "logs", "routemap.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "recorded in file only") || !strings.Contains(string(data), "recorded twice") {
		t.Errorf("log file missing records: %s", data)
	}
	if strings.Contains(console.String(), "recorded in file only") {
		t.Error("console should respect the CLI level")
	}
	if !strings.Contains(console.String(), "recorded twice") {
		t.Error("console should contain the warning")
	}
}
