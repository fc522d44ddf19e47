package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "json format", config: &Config{Level: LevelInfo, Format: "json", Output: &bytes.Buffer{}}},
		{name: "text format", config: &Config{Level: LevelDebug, Format: "text", Output: &bytes.Buffer{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if NewLogger(tt.config) == nil {
				t.Error("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelDebug, Format: "json", Output: &buf}
	logger := NewLogger(config)

	moduleLogger := logger.WithModule("hal")
	moduleLogger.Info("test message")
	if output := buf.String(); !strings.Contains(output, `"module":"hal"`) {
		t.Errorf("expected module=hal in output, got: %s", output)
	}

	buf.Reset()
	axisLogger := moduleLogger.WithAxis(3)
	axisLogger.Info("axis message")
	output := buf.String()
	if !strings.Contains(output, `"module":"hal"`) {
		t.Errorf("expected module=hal in axis logger output, got: %s", output)
	}
	if !strings.Contains(output, `"axis":3`) {
		t.Errorf("expected axis=3 in output, got: %s", output)
	}
}

func TestLoggerWithSegment(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	segmentLogger := logger.WithSegment("evo_hal_cu")
	segmentLogger.Debug("attached")

	output := buf.String()
	if !strings.Contains(output, `"segment":"evo_hal_cu"`) {
		t.Errorf("expected segment=evo_hal_cu in output, got: %s", output)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	testErr := errors.New("test error")
	errorLogger := logger.WithError(testErr)
	errorLogger.Error("operation failed")

	output := buf.String()
	if !strings.Contains(output, "test error") {
		t.Errorf("expected 'test error' in output, got: %s", output)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf}))

	Debug("debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("expected debug message, got: %s", output)
	}
	if !strings.Contains(output, `"key":"value"`) {
		t.Errorf("expected key=value, got: %s", output)
	}

	buf.Reset()
	Info("info message")
	if output = buf.String(); !strings.Contains(output, "info message") {
		t.Errorf("expected info message, got: %s", output)
	}

	buf.Reset()
	Warn("warning message")
	if output = buf.String(); !strings.Contains(output, "warning message") {
		t.Errorf("expected warning message, got: %s", output)
	}

	buf.Reset()
	Error("error message")
	if output = buf.String(); !strings.Contains(output, "error message") {
		t.Errorf("expected error message, got: %s", output)
	}
}
