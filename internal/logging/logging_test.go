package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected logger from context")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger for bare context")
	}
	if got := ContextWithLogger(context.Background(), nil); FromContext(got) != nil {
		t.Fatalf("attaching a nil logger must be a no-op")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json handler filters by level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New(&buf, "warn", "json")
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Info("hidden")
		logger.Warn("shown", "ticket_id", 3)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected one record, got %q", buf.String())
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if record["msg"] != "shown" || record["ticket_id"] != float64(3) {
			t.Fatalf("unexpected record %v", record)
		}
	})

	t.Run("text handler", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New(&buf, "debug", "text")
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Debug("details")
		if !strings.Contains(buf.String(), "msg=details") {
			t.Fatalf("expected text output, got %q", buf.String())
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		t.Parallel()

		if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
			t.Fatalf("expected error for unknown format")
		}
	})
}
