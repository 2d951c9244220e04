package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Sternrassler/openphone-client/pkg/auth"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{LevelDisabled, zerolog.Disabled},
		{"invalid", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetup_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Output: buf})

	logger.Info().Str("endpoint", "contacts").Msg("request done")

	out := buf.String()
	if !strings.Contains(out, `"endpoint":"contacts"`) || !strings.Contains(out, `"time":`) {
		t.Errorf("unexpected JSON output %q", out)
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger.Info().Msg("pretty message")

	out := buf.String()
	if !strings.Contains(out, "pretty message") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected console output, got %q", out)
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("openphone-client")
	logger.Info().Msg("test message")

	out := buf.String()
	if !strings.Contains(out, `"component":"openphone-client"`) {
		t.Errorf("Expected component field, got %q", out)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})
	logger := NewLogger("test")

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Error("messages below Warn should be filtered out")
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Error("Warn and Error messages should be included")
	}
}

func TestAPIKeyIsMaskedInLogs(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	key, err := auth.NewAPIKey("sk_live_secretvalue9876")
	if err != nil {
		t.Fatal(err)
	}
	logger := NewLogger("test")
	logger.Info().Object("api_key", key).Stringer("key", key).Msg("configured")

	out := buf.String()
	if strings.Contains(out, "secretvalue") {
		t.Fatalf("raw key leaked into logs: %q", out)
	}
	if !strings.Contains(out, "9876") {
		t.Errorf("masked tail missing: %q", out)
	}
}
