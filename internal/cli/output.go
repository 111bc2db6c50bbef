package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/ticketdesk/internal/application"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func parseFormat(value string) (string, error) {
	switch format := strings.ToLower(strings.TrimSpace(value)); format {
	case FormatText, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", usagef("unknown output format %q (want text, json or yaml)", value)
	}
}

type ticketDTO struct {
	ID          int64  `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Status      string `json:"status" yaml:"status"`
	Priority    string `json:"priority" yaml:"priority"`
	CreatedAt   string `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   string `json:"updatedAt" yaml:"updatedAt"`
}

func toTicketDTO(ticket application.Ticket) ticketDTO {
	return ticketDTO{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		CreatedAt:   formatTime(ticket.CreatedAt),
		UpdatedAt:   formatTime(ticket.UpdatedAt),
	}
}

func toTicketDTOs(tickets []application.Ticket) []ticketDTO {
	out := make([]ticketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, toTicketDTO(ticket))
	}
	return out
}

type sessionDTO struct {
	Email     string `json:"email" yaml:"email"`
	ID        int64  `json:"id" yaml:"id"`
	LoginTime string `json:"loginTime" yaml:"loginTime"`
	ExpiresAt string `json:"expiresAt" yaml:"expiresAt"`
}

func toSessionDTO(session application.Session, ttl time.Duration) sessionDTO {
	return sessionDTO{
		Email:     session.Email,
		ID:        session.ID,
		LoginTime: formatTime(session.LoginTime),
		ExpiresAt: formatTime(session.ExpiresAt(ttl)),
	}
}

type statsDTO struct {
	Total      int `json:"total" yaml:"total"`
	Open       int `json:"open" yaml:"open"`
	InProgress int `json:"inProgress" yaml:"inProgress"`
	Closed     int `json:"closed" yaml:"closed"`
}

func toStatsDTO(stats application.Stats) statsDTO {
	return statsDTO{Total: stats.Total, Open: stats.Open, InProgress: stats.InProgress, Closed: stats.Closed}
}

type messageDTO struct {
	Message string `json:"message" yaml:"message"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(application.TimestampLayout)
}

// render writes value in the selected format. text is used for the text format.
func render(w io.Writer, format string, value any, text func(io.Writer) error) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return text(w)
	}
}

func writeTicketTable(w io.Writer, tickets []ticketDTO) error {
	if len(tickets) == 0 {
		_, err := fmt.Fprintln(w, "No tickets.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tUPDATED\tTITLE")
	for _, ticket := range tickets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ticket.ID, ticket.Status, ticket.Priority, ticket.UpdatedAt, ticket.Title)
	}
	return tw.Flush()
}

func writeTicketDetail(w io.Writer, ticket ticketDTO) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", ticket.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", ticket.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", ticket.Status)
	fmt.Fprintf(tw, "Priority:\t%s\n", ticket.Priority)
	fmt.Fprintf(tw, "Created:\t%s\n", ticket.CreatedAt)
	fmt.Fprintf(tw, "Updated:\t%s\n", ticket.UpdatedAt)
	if ticket.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", ticket.Description)
	}
	return tw.Flush()
}
