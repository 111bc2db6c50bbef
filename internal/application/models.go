package application

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the fixed millisecond RFC 3339 form written to records.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Session represents the authenticated identity persisted in the session record.
type Session struct {
	Email     string    `json:"email"`
	ID        int64     `json:"id"`
	LoginTime time.Time `json:"loginTime"`
}

// MarshalJSON writes loginTime with exactly three fractional digits.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Email     string `json:"email"`
		ID        int64  `json:"id"`
		LoginTime string `json:"loginTime"`
	}{
		Email:     s.Email,
		ID:        s.ID,
		LoginTime: formatTimestamp(s.LoginTime),
	})
}

// ExpiresAt returns the instant after which the session is no longer valid.
func (s Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.LoginTime.Add(ttl)
}

// activeAt reports whether the session is still inside its validity window.
// The window is inclusive: a session exactly ttl old is still valid.
func (s Session) activeAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LoginTime) <= ttl
}

// SessionState tracks the lifecycle of a SessionManager.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// UnmarshalJSON rejects values outside the enumeration so that a decoded
// ticket can never carry an unknown status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !Status(raw).Valid() {
		return fmt.Errorf("unknown ticket status %q", raw)
	}
	*s = Status(raw)
	return nil
}

// Priority ranks the urgency of a ticket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// UnmarshalJSON rejects values outside the enumeration.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !Priority(raw).Valid() {
		return fmt.Errorf("unknown ticket priority %q", raw)
	}
	*p = Priority(raw)
	return nil
}

// TicketInput captures caller provided ticket fields. Status and Priority are
// raw strings so that out-of-range values can be reported as violations.
type TicketInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
}

// Ticket represents a persisted support ticket.
type Ticket struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarshalJSON writes timestamps with exactly three fractional digits.
func (t Ticket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          int64    `json:"id"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Status      Status   `json:"status"`
		Priority    Priority `json:"priority"`
		CreatedAt   string   `json:"createdAt"`
		UpdatedAt   string   `json:"updatedAt"`
	}{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedAt:   formatTimestamp(t.CreatedAt),
		UpdatedAt:   formatTimestamp(t.UpdatedAt),
	})
}

// Stats aggregates the ticket collection by status.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
}
