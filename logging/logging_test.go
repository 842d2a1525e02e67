package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDefaultLoggerRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut, false)

	logger.Info("sample loaded", Fields{"name": "E2"})
	logger.Warn("sample missing", Fields{"name": "A2"})
	logger.Error(errors.New("decode failed"), "sample load failed")

	if !strings.Contains(out.String(), "sample loaded") || !strings.Contains(out.String(), "name=E2") {
		t.Errorf("info record not written to stdout: %q", out.String())
	}
	if strings.Contains(out.String(), "sample missing") {
		t.Error("warn record should not reach stdout")
	}
	if !strings.Contains(errOut.String(), "sample missing") {
		t.Errorf("warn record not written to stderr: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), `error="decode failed"`) {
		t.Errorf("error attribute missing: %q", errOut.String())
	}
}

func TestDefaultLoggerLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut, false)

	logger.Debug("hidden")
	if out.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", out.String())
	}

	child := logger.WithFields(Fields{"component": "synth"})
	logger.SetLevel(DebugLevel)
	child.Debug("visible")
	if !strings.Contains(out.String(), "component=synth") {
		t.Errorf("derived logger should share level and carry fields: %q", out.String())
	}
}

func TestWithContextFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &out, false)

	ctx := ContextWithFields(context.Background(), Fields{"kit": "loop"})
	ctx = ContextWithFields(ctx, Fields{"bpm": 96})
	logger.WithContext(ctx).Info("metronome started")

	got := out.String()
	if !strings.Contains(got, "kit=loop") || !strings.Contains(got, "bpm=96") {
		t.Errorf("context fields missing: %q", got)
	}
}

func TestFatalExits(t *testing.T) {
	var out bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &out, false)
	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("boom"), "unrecoverable")
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"nonsense", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
