package application

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned when no ticket carries the requested id.
	ErrNotFound = errors.New("application: not found")
	// ErrMissingCredentials is returned when the email or password is empty.
	ErrMissingCredentials = errors.New("application: missing credentials")
	// ErrWeakPassword is returned when the password is shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("application: weak password")
	// ErrInvalidEmail is returned when the email does not look like local@domain.tld.
	ErrInvalidEmail = errors.New("application: invalid email")
	// ErrPasswordMismatch is returned by signup when the confirmation differs.
	ErrPasswordMismatch = errors.New("application: password mismatch")
)

// ViolationCode identifies a single ticket field rule that was broken.
type ViolationCode string

const (
	TitleRequired      ViolationCode = "title_required"
	TitleTooLong       ViolationCode = "title_too_long"
	DescriptionTooLong ViolationCode = "description_too_long"
	InvalidStatus      ViolationCode = "invalid_status"
	InvalidPriority    ViolationCode = "invalid_priority"
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]ViolationCode
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Has reports whether the given violation was recorded for any field.
func (v *ValidationError) Has(code ViolationCode) bool {
	if v == nil {
		return false
	}
	for _, recorded := range v.FieldErrors {
		if recorded == code {
			return true
		}
	}
	return false
}

// Codes returns the recorded violations ordered by field name.
func (v *ValidationError) Codes() []ViolationCode {
	if !v.HasErrors() {
		return nil
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	codes := make([]ViolationCode, 0, len(fields))
	for _, field := range fields {
		codes = append(codes, v.FieldErrors[field])
	}
	return codes
}

// add records a field level validation error.
func (v *ValidationError) add(field string, code ViolationCode) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]ViolationCode)
	}
	v.FieldErrors[field] = code
}

// LoadError reports that a persisted record could not be read or decoded. The
// owning component has already fallen back to an empty state when it is returned.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("load %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PersistenceError reports that a durable write failed after the in-memory
// state was already updated.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsPersistenceError reports whether err carries a *PersistenceError, meaning
// the operation took effect in memory but the durable copy lags behind.
func IsPersistenceError(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}
