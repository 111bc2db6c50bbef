package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/ticketdesk/internal/application"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitUsage          = 2
	ExitUnauthorized   = 3
	ExitNotFound       = 4
	ExitInvalidInput   = 5
	ExitStorageFailure = 6
)

// ErrNotAuthenticated is returned by ticket commands run without a valid session.
var ErrNotAuthenticated = errors.New("cli: not authenticated")

type usageError struct {
	message string
}

func (e *usageError) Error() string {
	return e.message
}

func usagef(format string, args ...any) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

// describe maps an error to an exit code, a headline and optional detail lines.
func describe(err error) (code int, message string, details []string) {
	if err == nil {
		return ExitOK, "", nil
	}

	var uErr *usageError
	if errors.As(err, &uErr) {
		return ExitUsage, uErr.message, nil
	}

	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return ExitUnauthorized, "Please log in first (ticketdesk login --email ... --password ...)", nil
	case errors.Is(err, application.ErrMissingCredentials):
		return ExitUnauthorized, "Email and password are required", nil
	case errors.Is(err, application.ErrWeakPassword):
		return ExitUnauthorized, fmt.Sprintf("Password must be at least %d characters", application.MinPasswordLength), nil
	case errors.Is(err, application.ErrInvalidEmail):
		return ExitUnauthorized, "Please enter a valid email address", nil
	case errors.Is(err, application.ErrPasswordMismatch):
		return ExitUnauthorized, "Passwords do not match", nil
	case errors.Is(err, application.ErrNotFound):
		return ExitNotFound, "Ticket not found", nil
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		for _, code := range vErr.Codes() {
			details = append(details, violationMessage(code))
		}
		return ExitInvalidInput, "Please fix the errors in the ticket", details
	}

	if application.IsPersistenceError(err) {
		return ExitStorageFailure, "Failed to save changes. Please try again.", []string{err.Error()}
	}

	return ExitFailure, "An unexpected error occurred: " + strings.TrimSpace(err.Error()), nil
}

func violationMessage(code application.ViolationCode) string {
	switch code {
	case application.TitleRequired:
		return "Title is required"
	case application.TitleTooLong:
		return fmt.Sprintf("Title must be at most %d characters", application.MaxTitleLength)
	case application.DescriptionTooLong:
		return fmt.Sprintf("Description must be at most %d characters", application.MaxDescriptionLength)
	case application.InvalidStatus:
		return "Status must be: open, in_progress, or closed"
	case application.InvalidPriority:
		return "Priority must be: low, medium, or high"
	default:
		return string(code)
	}
}
