package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/akave-ai/returnall/internal/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	var buf bytes.Buffer
	l := NewWithWriter(cfg, &buf)

	l.Debug().Msg("hidden")
	l.Info().Msg("visible")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "visible" || line["service"] != "returnall" || line["environment"] != "development" {
		t.Fatalf("line = %v", line)
	}
}

func TestNewWithWriter_Console(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "debug"
	var buf bytes.Buffer
	l := NewWithWriter(cfg, &buf)
	l.Debug().Msg("hello")

	if json.Valid(buf.Bytes()) || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}
