package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerWritesToFile(t *testing.T) {
	var buf bytes.Buffer
	debug := true
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, &debug)
	log := slog.New(h)
	log.Info("pipeline stalled", "cycle", 42)

	out := buf.String()
	if !strings.Contains(out, "pipeline stalled") || !strings.Contains(out, "42") {
		t.Fatalf("log output = %q, want it to mention the message and attrs", out)
	}
}

func TestHandlerSetDebugTogglesStderrFanout(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, nil, &debug)
	if h.debug {
		t.Fatalf("debug should start false")
	}
	on := true
	h.SetDebug(&on)
	if !h.debug {
		t.Fatalf("SetDebug(true) did not take effect")
	}
}

func TestHandlerWithAttrsPreservesFanoutTarget(t *testing.T) {
	var buf bytes.Buffer
	debug := true
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, &debug)
	child := h.WithAttrs([]slog.Attr{slog.String("unit", "ALU0")})
	log := slog.New(child)
	log.Info("issued")

	if !strings.Contains(buf.String(), "ALU0") {
		t.Fatalf("child handler did not carry the bound attribute through to the file: %q", buf.String())
	}
}
