package cmd

import (
	"log/slog"
	"testing"

	"github.com/insightfinder/mcp-server-go/internal/adapter/outbound/memory"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLimiterOrNil(t *testing.T) {
	t.Parallel()

	if got := limiterOrNil(nil); got != nil {
		t.Errorf("limiterOrNil(nil) = %v, want untyped nil", got)
	}

	l := memory.NewSlidingWindowLimiter(10)
	if got := limiterOrNil(l); got == nil {
		t.Error("limiterOrNil(limiter) = nil")
	}
}
