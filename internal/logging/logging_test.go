package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "debug", Format: "json"}).With(String("provider", "meeus"))

	log.Info(context.Background(), "scan finished", Int("steps", 72))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "scan finished" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["provider"] != "meeus" {
		t.Errorf("provider = %v", rec["provider"])
	}
	if rec["steps"] != float64(72) {
		t.Errorf("steps = %v", rec["steps"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "warn"})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestNoopDiscards(t *testing.T) {
	log := Noop().With(String("k", "v"))
	log.Error(context.Background(), "nothing happens")
}
