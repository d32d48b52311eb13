package logsink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/akave-ai/returnall/internal/config"
	"github.com/akave-ai/returnall/internal/model"
)

func sampleRecord() *model.RequestRecord {
	return &model.RequestRecord{
		RequestID:   "abc-123",
		Method:      "POST",
		URL:         "http://localhost/returnAll",
		PathParams:  map[string]string{},
		QueryParams: map[string]string{},
		Headers:     map[string]string{"X-Test": "1"},
		Body:        map[string]any{"a": json.Number("1")},
		IsValidJSON: true,
	}
}

func TestZerologSink_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf, "returnAll-api")

	s.Record(context.Background(), "Received request: abc-123", sampleRecord())

	var line struct {
		Time        string         `json:"time"`
		Name        string         `json:"name"`
		Level       string         `json:"level"`
		Message     string         `json:"message"`
		RequestInfo map[string]any `json:"request_info"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if line.Time == "" || line.Name != "returnAll-api" || line.Level != "info" {
		t.Fatalf("unexpected envelope: %+v", line)
	}
	if line.Message != "Received request: abc-123" {
		t.Fatalf("message = %q", line.Message)
	}
	if line.RequestInfo["request_id"] != "abc-123" {
		t.Fatalf("request_info = %v", line.RequestInfo)
	}
	if headers, _ := line.RequestInfo["headers"].(map[string]any); headers["X-Test"] != "1" {
		t.Fatalf("headers = %v", line.RequestInfo["headers"])
	}
}

func TestNew_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "api.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{\"existing\":true}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(config.LogConfig{Path: path, Name: "returnAll-api"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Record(context.Background(), "first", sampleRecord())
	s.Record(context.Background(), "second", sampleRecord())
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (1 existing + 2 appended), got %d: %q", len(lines), lines)
	}
	for _, l := range lines[1:] {
		if !json.Valid([]byte(l)) {
			t.Fatalf("line is not JSON: %s", l)
		}
	}
}

func TestNew_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "api.log")
	s, err := New(config.LogConfig{Path: path, Name: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}
