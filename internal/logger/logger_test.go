package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/alenjb/deli/internal/models"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONHandlerCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(newHandler(&buf, models.LogConfig{Level: "info", Format: "json"})).
		With(slog.String("service", "order-service"))

	lg.Info("order_created", "order_id", "o-1")
	lg.Debug("dropped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "order_created" || entry["service"] != "order-service" || entry["order_id"] != "o-1" {
		t.Errorf("unexpected record: %v", entry)
	}
}
