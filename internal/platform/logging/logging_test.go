package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatLog(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		message  string
		expected string
	}{
		{"plain message", "Generate", "batch done", "[Generate] batch done"},
		{"already tagged", "Generate", "[Assemble] done", "[Assemble] done"},
		{"empty tag", "", "hello", "hello"},
		{"whitespace trimmed", " Voice ", " matched ", "[Voice] matched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatLog(tt.tag, tt.message); got != tt.expected {
				t.Errorf("FormatLog(%q, %q) = %q, expected %q", tt.tag, tt.message, got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "debug", Dir: dir, Filename: "test.log"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	logger.InfoTag("Generate", "run %s started", "abc123")
	logger.Error("assembly failed")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[Generate] run abc123 started") {
		t.Errorf("log file missing tagged message, got: %s", content)
	}
	if !strings.Contains(content, "assembly failed") {
		t.Errorf("log file missing error message, got: %s", content)
	}
}
