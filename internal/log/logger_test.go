package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/helixml/passage/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"WARN":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_JSONIncludesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	ctx := WithCorrelationID(context.Background(), "corr-1")
	ctx = WithRequestID(ctx, "req-9")
	logger.With("component", "api").InfoContext(ctx, "search", "top_k", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if record["msg"] != "search" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v", record["correlation_id"])
	}
	if record["request_id"] != "req-9" {
		t.Errorf("request_id = %v", record["request_id"])
	}
	if record["component"] != "api" {
		t.Errorf("component = %v", record["component"])
	}
}

func TestLogger_NoContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatPretty, "DEBUG")
	logger.Debug("plain")

	if strings.Contains(buf.String(), "correlation_id") {
		t.Errorf("unexpected correlation id in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "DBG plain") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatPretty, "ERROR")
	logger.Warn("ignored")
	logger.Error("kept")

	output := buf.String()
	if strings.Contains(output, "ignored") || !strings.Contains(output, "kept") {
		t.Errorf("unexpected output %q", output)
	}
}

func TestCorrelationIDs(t *testing.T) {
	a, b := NewCorrelationID(), NewCorrelationID()
	if a == "" || a == b {
		t.Errorf("expected distinct ids, got %q and %q", a, b)
	}
	if CorrelationID(context.Background()) != "" || RequestID(context.Background()) != "" {
		t.Error("expected empty ids on a bare context")
	}
	if got := CorrelationID(WithCorrelationID(context.Background(), a)); got != a {
		t.Errorf("CorrelationID = %q, want %q", got, a)
	}
}
