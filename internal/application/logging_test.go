package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/ticketdesk/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var baseBuf, ctxBuf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&baseBuf, nil))
	scoped := slog.New(slog.NewTextHandler(&ctxBuf, nil))
	ctx := logging.ContextWithLogger(context.Background(), scoped)

	serviceLogger(ctx, base, "TicketStore", "Create", "ticket_id", 7).Info("hello")

	if baseBuf.Len() != 0 {
		t.Fatalf("expected base logger to be bypassed, got %q", baseBuf.String())
	}
	out := ctxBuf.String()
	for _, want := range []string{"component=TicketStore", "operation=Create", "ticket_id=7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrNotFound, want: "not_found"},
		{err: fmt.Errorf("wrap: %w", ErrMissingCredentials), want: "missing_credentials"},
		{err: ErrWeakPassword, want: "weak_password"},
		{err: ErrInvalidEmail, want: "invalid_email"},
		{err: ErrPasswordMismatch, want: "password_mismatch"},
		{err: &ValidationError{FieldErrors: map[string]ViolationCode{"title": TitleRequired}}, want: "validation"},
		{err: &LoadError{Key: TicketsKey, Err: io.ErrUnexpectedEOF}, want: "load"},
		{err: &PersistenceError{Op: "save", Key: TicketsKey, Err: io.ErrClosedPipe}, want: "persistence"},
		{err: io.EOF, want: "unexpected"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
