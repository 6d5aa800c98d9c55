package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugOutputRespectsFlag(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, true)
	defer Init(&buf, false)

	DebugOutput(false, "hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output when disabled, got %q", buf.String())
	}

	DebugOutput(true, "visible %d", 2)
	if !strings.Contains(buf.String(), "visible 2") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}

func TestStepAlwaysPrinted(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, false)

	Step("Read census data", "rows", 3)
	out := buf.String()
	if !strings.Contains(out, "Read census data") || !strings.Contains(out, "rows=3") {
		t.Errorf("unexpected step output %q", out)
	}

	buf.Reset()
	DebugOutput(true, "suppressed at info level")
	if buf.Len() != 0 {
		t.Errorf("debug line leaked at info level: %q", buf.String())
	}
}

func TestDebugTimingDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, true)
	done := DebugTiming(false, "noop")
	done()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
