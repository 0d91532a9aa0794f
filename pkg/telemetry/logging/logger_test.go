package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/relay/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid JSON config",
			config:  config.LoggingConfig{Level: "info", Format: "json", RedactSecrets: true},
			wantErr: false,
		},
		{
			name:    "valid text config",
			config:  config.LoggingConfig{Level: "debug", Format: "text"},
			wantErr: false,
		},
		{
			name:    "empty values use defaults",
			config:  config.LoggingConfig{},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			config:  config.LoggingConfig{Level: "invalid", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  config.LoggingConfig{Level: "info", Format: "console"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newJSONLogger(t *testing.T, level string, redact bool) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := New(config.LoggingConfig{Level: level, Format: "json", RedactSecrets: redact}, buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		level    slog.Level
		wantLog  bool
	}{
		{"debug level logs debug", "debug", slog.LevelDebug, true},
		{"info level filters debug", "info", slog.LevelDebug, false},
		{"info level logs info", "info", slog.LevelInfo, true},
		{"warn level filters info", "warn", slog.LevelInfo, false},
		{"warn level logs warn", "warn", slog.LevelWarn, true},
		{"error level filters warn", "error", slog.LevelWarn, false},
		{"error level logs error", "error", slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newJSONLogger(t, tt.logLevel, false)
			logger.Log(context.Background(), tt.level, "test message")

			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLogger_SecretRedaction(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", true)

	logger.Info("provider call failed",
		"api_key", "sk-abcdefghijklmnop",
		"error", "upstream said: invalid key sk-abcdefghijklmnop",
		"authorization", "Bearer abc.def.ghi",
		"tokens", 42,
		"provider", "openai",
	)

	entry := decodeLine(t, buf)
	if got := entry["api_key"]; got != "sk-a***" {
		t.Errorf("api_key = %v, want sk-a***", got)
	}
	if got := entry["error"].(string); strings.Contains(got, "abcdefghijklmnop") {
		t.Errorf("error message leaked key: %q", got)
	}
	if got := entry["authorization"]; got != "Bear***" {
		t.Errorf("authorization = %v, want Bear***", got)
	}
	if got := entry["tokens"]; got != float64(42) {
		t.Errorf("tokens = %v, want 42 (numbers are not secrets)", got)
	}
	if got := entry["provider"]; got != "openai" {
		t.Errorf("provider = %v, want openai", got)
	}
}

func TestLogger_NoRedactionWhenDisabled(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", false)
	logger.Info("raw", "api_key", "sk-abcdefghijklmnop")

	if got := decodeLine(t, buf)["api_key"]; got != "sk-abcdefghijklmnop" {
		t.Errorf("api_key = %v, want unredacted value", got)
	}
}

func TestLogger_WithAttrsAreRedacted(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", true)
	logger.With("openai_api_key", "sk-zzzzzzzzzzzz").Info("configured")

	if got := decodeLine(t, buf)["openai_api_key"]; got != "sk-z***" {
		t.Errorf("openai_api_key = %v, want sk-z***", got)
	}
}

func TestLogger_GroupsAreRedacted(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", true)
	logger.Info("provider", slog.Group("upstream", slog.String("api_key", "sk-yyyyyyyyyyyy")))

	upstream, ok := decodeLine(t, buf)["upstream"].(map[string]any)
	if !ok {
		t.Fatalf("upstream group missing")
	}
	if got := upstream["api_key"]; got != "sk-y***" {
		t.Errorf("upstream.api_key = %v, want sk-y***", got)
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", true)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithProvider(ctx, "anthropic")
	ctx = WithModel(ctx, "claude-3-haiku")

	logger.InfoContext(ctx, "dispatched")

	entry := decodeLine(t, buf)
	for key, want := range map[string]string{
		"request_id": "req-123",
		"provider":   "anthropic",
		"model":      "claude-3-haiku",
	} {
		if got := entry[key]; got != want {
			t.Errorf("%s = %v, want %q", key, got, want)
		}
	}
}

func TestLogger_ExplicitAttrWinsOverContext(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", false)

	ctx := WithProvider(context.Background(), "openai")
	logger.InfoContext(ctx, "fallback", "provider", "anthropic")

	line := buf.String()
	if strings.Count(line, `"provider"`) != 1 {
		t.Errorf("expected a single provider field, got %s", line)
	}
	if got := decodeLine(t, buf)["provider"]; got != "anthropic" {
		t.Errorf("provider = %v, want anthropic", got)
	}
}

func TestLogger_Formats(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(config.LoggingConfig{Level: "info", Format: "text"}, buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello", "key", "value")

	if !strings.Contains(buf.String(), "key=value") {
		t.Errorf("text output missing key=value: %q", buf.String())
	}
}

func TestLogger_AddSource(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", AddSource: true}, buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("with source")

	if !strings.Contains(buf.String(), `"source"`) {
		t.Errorf("expected source field, got %q", buf.String())
	}
}

func TestSetup_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	buf := &bytes.Buffer{}
	if _, err := Setup(config.LoggingConfig{Level: "info", Format: "json", RedactSecrets: true}, buf); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	slog.Info("through default", "api_key", "sk-qqqqqqqqqqqq")

	if !strings.Contains(buf.String(), "sk-q***") {
		t.Errorf("default logger did not redact: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    LogFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"TEXT", FormatText, false},
		{"", FormatJSON, false},
		{"console", FormatJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
