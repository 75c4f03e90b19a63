package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestCtx_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(Config{})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	Ctx(ctx).Info().Str("bucket", "trending").Msg("curation updated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", entry["request_id"])
	}
	if entry["bucket"] != "trending" {
		t.Errorf("bucket = %v, want trending", entry["bucket"])
	}
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(Config{})

	Debug().Msg("hidden")
	Info().Msg("hidden too")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug/info lines should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty request id, got %q", id)
	}
	if NewRequestID() == NewRequestID() {
		t.Error("request ids should be unique")
	}
}
