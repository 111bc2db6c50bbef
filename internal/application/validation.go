package application

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest password accepted by login and signup.
	MinPasswordLength = 6
	// MaxTitleLength bounds the trimmed ticket title.
	MaxTitleLength = 100
	// MaxDescriptionLength bounds the ticket description.
	MaxDescriptionLength = 500

	demoEmail    = "demo@test.com"
	demoPassword = "password"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func weakPassword(password string) bool {
	return utf8.RuneCountInString(password) < MinPasswordLength
}

// normalizeTicketInput applies defaults for omitted enumerations. The title
// is kept as given.
func normalizeTicketInput(input TicketInput) TicketInput {
	if input.Status == "" {
		input.Status = string(StatusOpen)
	}
	if input.Priority == "" {
		input.Priority = string(PriorityMedium)
	}
	return input
}

// validateTicketInput checks every field and records all violations at once.
// The input must already be normalised. A blank title counts as missing; the
// length limit applies to the title as given.
func validateTicketInput(input TicketInput) *ValidationError {
	vErr := &ValidationError{}

	switch {
	case strings.TrimSpace(input.Title) == "":
		vErr.add("title", TitleRequired)
	case utf8.RuneCountInString(input.Title) > MaxTitleLength:
		vErr.add("title", TitleTooLong)
	}
	if utf8.RuneCountInString(input.Description) > MaxDescriptionLength {
		vErr.add("description", DescriptionTooLong)
	}
	if !Status(input.Status).Valid() {
		vErr.add("status", InvalidStatus)
	}
	if !Priority(input.Priority).Valid() {
		vErr.add("priority", InvalidPriority)
	}

	return vErr
}
