package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_Level(t *testing.T) {
	tests := []struct {
		env       string
		wantDebug bool
	}{
		{"dev", true},
		{"prod", false},
		{"", false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		log := NewWithWriter(tt.env, &buf)
		log.Debug("probe")
		if got := buf.Len() > 0; got != tt.wantDebug {
			t.Errorf("env %q: debug emitted = %v, want %v", tt.env, got, tt.wantDebug)
		}
	}
}

func TestForRun(t *testing.T) {
	var buf bytes.Buffer
	log := ForRun(NewWithWriter("prod", &buf), "run-1", "allocate")
	log.Warn("catalog entry missing", "sku", "X")

	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for k, want := range map[string]string{
		"run_id":  "run-1",
		"job":     "allocate",
		"sku":     "X",
		"service": "stock-planner",
		"level":   "WARN",
	} {
		if rec[k] != want {
			t.Errorf("%s = %v, want %s", k, rec[k], want)
		}
	}
}
