package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestNewWriterEmitsComponentAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").WithComponent("tiered")
	log.Warn("source failed", map[string]interface{}{FieldSource: "http"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
	if entry[FieldComponent] != "tiered" {
		t.Fatalf("unexpected component: %v", entry[FieldComponent])
	}
	if entry[FieldSource] != "http" {
		t.Fatalf("unexpected source: %v", entry[FieldSource])
	}
	if entry["message"] != "source failed" {
		t.Fatalf("unexpected message: %v", entry["message"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "info")
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %q", buf.String())
	}

	log.WithError(errors.New("boom")).Error("visible")
	if !bytes.Contains(buf.Bytes(), []byte(`"error":"boom"`)) {
		t.Fatalf("expected error field, got %q", buf.String())
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestNopDiscards(t *testing.T) {
	t.Parallel()

	Nop().WithComponent("x").Info("nothing", map[string]interface{}{"a": 1})
}

func TestDebugEnabledFollowsConfiguredLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if !NewWriter(&buf, "debug").DebugEnabled() {
		t.Fatalf("expected debug logger to report debug enabled")
	}
	if NewWriter(&buf, "info").WithComponent("server").DebugEnabled() {
		t.Fatalf("expected info logger to report debug disabled")
	}
	if Nop().DebugEnabled() {
		t.Fatalf("expected nop logger to report debug disabled")
	}
}
