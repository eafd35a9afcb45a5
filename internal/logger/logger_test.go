package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONUsesUTC(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("hidden")
	l.Info("shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["msg"] != "shown" || rec["k"] != "v" {
		t.Fatalf("record = %v", rec)
	}
	ts, _ := rec["time"].(string)
	if !strings.HasSuffix(ts, "Z") {
		t.Fatalf("time = %q, want UTC", ts)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Fatal("expected format error")
	}
}

func TestSetupInstallsPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := Setup(Config{Level: "info", Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if L() != l {
		t.Fatal("L does not return the installed logger")
	}
	L().Info("via package")
	if !strings.Contains(buf.String(), "msg=\"via package\"") {
		t.Fatalf("output = %q", buf.String())
	}
}
