package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("loader created", "vertex_size", 12)

	out := buf.String()
	if !strings.Contains(out, "loader created") {
		t.Fatalf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"vertex_size":12`) {
		t.Fatalf("expected vertex_size in JSON output, got: %s", out)
	}
	if !strings.Contains(out, `"level":"INFO"`) {
		t.Fatalf("expected level INFO in output, got: %s", out)
	}
}

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Debug("hidden too")
	if buf.Len() > 0 {
		t.Fatalf("expected no output below warn, got: %s", buf.String())
	}

	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn message, got: %s", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	t.Parallel()
	log := Nop()
	log.Error("nothing")
	log.With("k", "v").WithGroup("g").Info("still nothing")
}

func TestForFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ForFormat("json", &buf, slog.LevelInfo).Info("x")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("json format: got %s", buf.String())
	}

	buf.Reset()
	ForFormat("text", &buf, slog.LevelInfo).Info("x")
	if !strings.Contains(buf.String(), "msg=x") {
		t.Fatalf("text format: got %s", buf.String())
	}

	buf.Reset()
	ForFormat("bogus", &buf, slog.LevelInfo).Info("pretty line")
	if !strings.Contains(buf.String(), "INFO  pretty line") {
		t.Fatalf("pretty fallback: got %q", buf.String())
	}
}

func TestPrettyPlainWhenNotATerminal(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Pretty(&buf, slog.LevelInfo)
	log.Info("refresh", "group", 3)

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no escape codes for a buffer, got %q", out)
	}
	if !strings.Contains(out, "refresh group=3") {
		t.Fatalf("expected attrs after message, got %q", out)
	}
}

func TestPrettyGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	l := slog.New(h.WithGroup("cache").WithGroup("slot"))
	l.Info("hit", "index", 2)

	if !strings.Contains(buf.String(), "cache.slot.index=2") {
		t.Fatalf("expected nested group prefix, got %q", buf.String())
	}
}

func TestPrettyWithAttrsKeepsGroupAtCreation(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	l := slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "fifo")}).WithGroup("op"))
	l.Info("decoded", "code", "0x08")

	out := buf.String()
	if !strings.Contains(out, " component=fifo") {
		t.Fatalf("handler attrs must not take later groups, got %q", out)
	}
	if !strings.Contains(out, "op.code=0x08") {
		t.Fatalf("record attrs must take the group, got %q", out)
	}
}

func TestPrettyEmptyGroupReturnsSameHandler(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, nil)
	if h.WithGroup("") != slog.Handler(h) {
		t.Fatal("WithGroup(\"\") should return the receiver")
	}
}

func TestPrettyEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled at warn")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("error should be enabled at warn")
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), JSON(&buf, slog.LevelInfo))
	FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without logger returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]bool{
		"simple":     false,
		"has space":  true,
		`has"quote`:  true,
		"k=v":        true,
		"":           false,
		"0x1FF-mask": false,
	} {
		if got := needsQuoting(in); got != want {
			t.Errorf("needsQuoting(%q) = %v, want %v", in, got, want)
		}
	}
}
