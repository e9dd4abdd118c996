package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/valyala/fasthttp"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", &buf)
	defer func() { Log = nil }()

	Info("hidden_event")
	Warn("visible_event", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden_event") {
		t.Fatalf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "visible_event") || !strings.Contains(out, "k=v") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestSafeHeadersFast_MasksCredentials(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer secret-token")
	ctx.Request.Header.Set("X-Trace", "abc")

	got := SafeHeadersFast(&ctx)
	if strings.Contains(got, "secret-token") {
		t.Fatalf("credential leaked: %q", got)
	}
	if !strings.Contains(got, "X-Trace=abc") {
		t.Fatalf("plain header missing: %q", got)
	}
}
