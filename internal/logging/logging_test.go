package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("matrixmgr")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("connected", "host", "matrix.local:4999")

	out := buf.String()
	if strings.Contains(out, `msg="INFO connected`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, "msg=connected") {
		t.Fatalf("expected plain connected message, got: %s", out)
	}
	if !strings.Contains(out, "component=matrixmgr") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "host=matrix.local:4999") {
		t.Fatalf("expected host field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("volume")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestInitSwitchesFormatToJSON(t *testing.T) {
	logger := L("screen")

	var buf bytes.Buffer
	Init("json", "info", &buf)

	logger.Info("pressed", "button", "SELECT")

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected JSON output, got: %s", out)
	}
	if !strings.Contains(out, `"button":"SELECT"`) {
		t.Fatalf("expected button field, got: %s", out)
	}
}
