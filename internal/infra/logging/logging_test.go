package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"vpn-subscription-bot/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithRunID(WithTgID(context.Background(), 42), "run-1")
	With(ctx, base).Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["tg_id"] != float64(42) {
		t.Errorf("expected tg_id 42, got %v", entry["tg_id"])
	}
	if entry["run_id"] != "run-1" {
		t.Errorf("expected run_id, got %v", entry["run_id"])
	}
	if _, ok := entry["chat_id"]; ok {
		t.Error("chat_id must be absent when not set")
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	logger.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %s", buf.String())
	}
	logger.Warn().Msg("loud")
	if buf.Len() == 0 {
		t.Fatal("warn must be written")
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("ABCDEFGH", false); got != "AB...GH" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := Redact("ABC", false); got != "***" {
		t.Errorf("short values must be fully hidden, got %q", got)
	}
	if got := Redact("ABCDEFGH", true); got != "ABCDEFGH" {
		t.Errorf("dev mode must not redact, got %q", got)
	}
}
