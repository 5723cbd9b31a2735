package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTDEE(t *testing.T) {
	tests := []struct {
		env  string
		want float64
	}{
		{"", 2000},
		{"2500", 2500},
		{"abc", 2000},
		{"-10", 2000},
		{"0", 2000},
	}
	for _, tt := range tests {
		t.Setenv("DEFAULT_TDEE", tt.env)
		if got := defaultTDEE(); got != tt.want {
			t.Errorf("DEFAULT_TDEE=%q: got %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestGetDBPath(t *testing.T) {
	old := dbPath
	defer func() { dbPath = old }()

	dbPath = "/tmp/explicit.db"
	if got := getDBPath(); got != "/tmp/explicit.db" {
		t.Errorf("flag: got %q", got)
	}

	dbPath = ""
	t.Setenv("NUTRITION_DB", "/tmp/env.db")
	if got := getDBPath(); got != "/tmp/env.db" {
		t.Errorf("env: got %q", got)
	}

	t.Setenv("NUTRITION_DB", "")
	if got := getDBPath(); filepath.Base(got) != "nutrition.db" {
		t.Errorf("default: got %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	oldLevel, oldFormat := logLevel, logFormat
	defer func() { logLevel, logFormat = oldLevel, oldFormat }()

	var buf bytes.Buffer
	logLevel, logFormat = "warn", "json"
	logger := newLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "label", "apple")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "shown" || entry["label"] != "apple" || entry["component"] != "nutrition-tracker" {
		t.Errorf("unexpected entry: %v", entry)
	}

	buf.Reset()
	logLevel, logFormat = "debug", "text"
	newLogger(&buf).Debug("detail")
	if !strings.Contains(buf.String(), "msg=detail") {
		t.Errorf("text handler output: %q", buf.String())
	}
}
