package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info().Str("file", "a.txt").Msg("uploaded")

	out := buf.String()
	if !strings.Contains(out, "uploaded") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "a.txt") {
		t.Errorf("expected field value in output, got %q", out)
	}
}

func TestComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf).Component("catalog")

	l.Warnf("refresh failed: %s", "boom")

	out := buf.String()
	if !strings.Contains(out, "catalog") {
		t.Errorf("expected component name in output, got %q", out)
	}
	if !strings.Contains(out, "refresh failed: boom") {
		t.Errorf("expected formatted message, got %q", out)
	}
}

func TestSetOutputRedirects(t *testing.T) {
	var first, second bytes.Buffer
	l := NewLogger(&first)
	l.SetOutput(&second)

	l.Info().Msg("hello")

	if first.Len() != 0 {
		t.Errorf("expected nothing in original writer, got %q", first.String())
	}
	if !strings.Contains(second.String(), "hello") {
		t.Errorf("expected message in redirected writer, got %q", second.String())
	}
	if l.Output() != &second {
		t.Error("Output() should return the redirected writer")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) must return a usable logger")
	}
	// Must not panic
	OrNop(nil).Info().Msg("discarded")

	l := Nop()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger unchanged")
	}
}
