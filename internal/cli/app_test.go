package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/example/ticketdesk/internal/application"
	"github.com/example/ticketdesk/internal/testfixtures"
)

type harness struct {
	storage *testfixtures.FlakyStore
	clock   *testfixtures.Clock
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness() *harness {
	return &harness{storage: testfixtures.NewFlakyStore(), clock: testfixtures.NewClock(time.Time{})}
}

// run executes one command line against a fresh App sharing the harness
// storage, the way separate processes share a database.
func (h *harness) run(t *testing.T, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := NewApp(Options{
		Storage:    h.storage,
		Now:        h.clock.NowFunc(),
		SessionTTL: 24 * time.Hour,
		Stdout:     &stdout,
		Stderr:     &stderr,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	code := app.Run(context.Background(), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	res := h.run(t, "login", "--email", "demo@test.com", "--password", "password")
	require.Equal(t, ExitOK, res.code, res.stderr)
}

func TestApp_LoginAndTicketLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness()

	res := h.run(t, "login", "--email", "demo@test.com", "--password", "password")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Authentication successful! Logged in as demo@test.com")

	res = h.run(t, "list")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "No tickets.\n", res.stdout)

	h.clock.Advance(time.Minute)
	res = h.run(t, "create", "--title", "Printer", "--priority", "high")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Ticket created successfully")

	res = h.run(t, "-o", "json", "list")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var listed []ticketDTO
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Printer", listed[0].Title)
	assert.Equal(t, "open", listed[0].Status)
	assert.Equal(t, "high", listed[0].Priority)
	assert.Equal(t, listed[0].CreatedAt, listed[0].UpdatedAt)

	id := listed[0].ID
	h.clock.Advance(time.Minute)
	res = h.run(t, "update", itoa(id), "--status", "closed", "--output", "json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var updated ticketDTO
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &updated))
	assert.Equal(t, "closed", updated.Status)
	assert.Equal(t, "high", updated.Priority, "unset flags keep their value")
	assert.Equal(t, listed[0].CreatedAt, updated.CreatedAt)
	assert.NotEqual(t, listed[0].UpdatedAt, updated.UpdatedAt)

	res = h.run(t, "--output", "yaml", "stats")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var stats statsDTO
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &stats))
	assert.Equal(t, statsDTO{Total: 1, Closed: 1}, stats)

	res = h.run(t, "delete", itoa(id))
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Ticket deleted successfully")

	res = h.run(t, "show", itoa(id))
	assert.Equal(t, ExitNotFound, res.code)
	assert.Contains(t, res.stderr, "Ticket not found")
}

func TestApp_TicketCommandsRequireSession(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"list"},
		{"stats"},
		{"show", "1"},
		{"create", "--title", "x"},
		{"update", "1", "--title", "x"},
		{"delete", "1"},
		{"whoami"},
	} {
		h := newHarness()
		res := h.run(t, args...)
		assert.Equal(t, ExitUnauthorized, res.code, "args %v", args)
		assert.Contains(t, res.stderr, "Please log in first", "args %v", args)
	}
}

func TestApp_SessionExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.login(t)

	h.clock.Advance(24 * time.Hour)
	res := h.run(t, "whoami")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "demo@test.com")

	h.clock.Advance(time.Hour)
	res = h.run(t, "list")
	assert.Equal(t, ExitUnauthorized, res.code)
	_, ok := h.storage.Raw(application.SessionKey)
	assert.False(t, ok, "expired session record should be removed")
}

func TestApp_AuthErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "invalid email", args: []string{"login", "-e", "bad-email", "-p", "123456"}, want: "Please enter a valid email address"},
		{name: "missing credentials", args: []string{"login"}, want: "Email and password are required"},
		{name: "short password", args: []string{"login", "-e", "a@b.com", "-p", "123"}, want: "Password must be at least 6 characters"},
		{name: "mismatch", args: []string{"signup", "-e", "a@b.com", "-p", "secret1", "--confirm-password", "secret2"}, want: "Passwords do not match"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness()
			res := h.run(t, tt.args...)
			assert.Equal(t, ExitUnauthorized, res.code)
			assert.Contains(t, res.stderr, tt.want)
			assert.Equal(t, 0, h.storage.SetCalls(application.SessionKey))
		})
	}
}

func TestApp_SignupThenLogout(t *testing.T) {
	t.Parallel()

	h := newHarness()
	res := h.run(t, "-o", "json", "signup", "-e", "new@user.io", "-p", "secret1", "--confirm-password", "secret1")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var session sessionDTO
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &session))
	assert.Equal(t, "new@user.io", session.Email)
	assert.NotEmpty(t, session.ExpiresAt)

	res = h.run(t, "logout")
	require.Equal(t, ExitOK, res.code, res.stderr)
	res = h.run(t, "logout")
	require.Equal(t, ExitOK, res.code, "logout is idempotent")

	res = h.run(t, "whoami")
	assert.Equal(t, ExitUnauthorized, res.code)
}

func TestApp_ValidationErrorsListEveryViolation(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.login(t)

	res := h.run(t, "create", "--title", "  ", "--status", "done", "--priority", "urgent")
	assert.Equal(t, ExitInvalidInput, res.code)
	assert.Contains(t, res.stderr, "Title is required")
	assert.Contains(t, res.stderr, "Status must be: open, in_progress, or closed")
	assert.Contains(t, res.stderr, "Priority must be: low, medium, or high")

	res = h.run(t, "create", "--title", strings.Repeat("x", 101))
	assert.Equal(t, ExitInvalidInput, res.code)
	assert.Contains(t, res.stderr, "Title must be at most 100 characters")
}

func TestApp_PersistenceFailureStillReportsTicket(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.login(t)
	h.storage.FailSet(testfixtures.ErrInjected)

	res := h.run(t, "create", "--title", "Unsaved")
	assert.Equal(t, ExitStorageFailure, res.code)
	assert.Contains(t, res.stdout, "Unsaved")
	assert.Contains(t, res.stderr, "Failed to save changes")
}

func TestApp_CorruptTicketsWarnAndContinue(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.login(t)
	h.storage.Seed(application.TicketsKey, "not json")

	res := h.run(t, "list")
	require.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stderr, "warning: Failed to load tickets")
	assert.Equal(t, "No tickets.\n", res.stdout)
}

func TestApp_ListFilters(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.login(t)
	for _, status := range []string{"open", "closed", "open"} {
		res := h.run(t, "create", "--title", "T-"+status, "--status", status)
		require.Equal(t, ExitOK, res.code, res.stderr)
	}

	res := h.run(t, "list", "--status", "open", "-o", "json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var listed []ticketDTO
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &listed))
	assert.Len(t, listed, 2)

	res = h.run(t, "list", "--status", "done")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, `invalid --status "done"`)
	assert.Empty(t, res.stdout)

	res = h.run(t, "list", "--priority", "urgent")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, `invalid --priority "urgent"`)
}

func TestApp_Usage(t *testing.T) {
	t.Parallel()

	h := newHarness()

	res := h.run(t, "help")
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "Commands:")

	res = h.run(t)
	assert.Equal(t, ExitUsage, res.code)

	res = h.run(t, "frobnicate")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, `unknown command "frobnicate"`)

	res = h.run(t, "-o", "xml", "logout")
	assert.Equal(t, ExitUsage, res.code)

	res = h.run(t, "create", "--help")
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "--title")

	h.login(t)
	res = h.run(t, "show", "abc")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, `invalid ticket id "abc"`)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
