package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConfigureSlogJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")

	logger.InfoContext(context.Background(), "graph.run.start", slog.String("case_id", "abc"))

	out := buf.String()
	if !strings.Contains(out, `"case_id":"abc"`) {
		t.Fatalf("expected json attribute in output, got %q", out)
	}
	if !strings.Contains(out, "graph.run.start") {
		t.Fatalf("expected message in output, got %q", out)
	}
}

func TestConfigureSlogLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "warn", "text")

	logger.Info("should be dropped")
	logger.Warn("should be kept")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Fatalf("info record leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "should be kept") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestSetLogLevelAdjustsExistingLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "text")

	logger.Debug("dropped at info")
	SetLogLevel("debug")
	logger.Debug("kept at debug")
	SetLogLevel("info")

	out := buf.String()
	if strings.Contains(out, "dropped at info") {
		t.Fatalf("debug record leaked through info level: %q", out)
	}
	if !strings.Contains(out, "kept at debug") {
		t.Fatalf("debug record missing after level change: %q", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGetMetrics(t *testing.T) {
	m, err := GetMetrics()
	if err != nil {
		t.Fatalf("GetMetrics error: %v", err)
	}
	if m == nil || m.StageRuns == nil || m.ToolCalls == nil {
		t.Fatal("expected initialized instruments")
	}

	// Second call returns the same instance.
	again, err := GetMetrics()
	if err != nil {
		t.Fatalf("GetMetrics error: %v", err)
	}
	if again != m {
		t.Fatal("expected shared metrics instance")
	}
}
