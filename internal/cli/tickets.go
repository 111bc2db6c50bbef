package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/example/ticketdesk/internal/application"
)

func parseTicketID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, usagef("expected exactly one ticket id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid ticket id %q", args[0])
	}
	return id, nil
}

func listCommand() command {
	return command{
		name:    "list",
		usage:   "list [--status STATUS] [--priority PRIORITY]",
		summary: "List tickets in creation order",
		auth:    true,
		bind: func(fs *pflag.FlagSet) runFunc {
			status := fs.String("status", "", "only tickets with this status")
			priority := fs.String("priority", "", "only tickets with this priority")
			return func(_ context.Context, inv *invocation, _ []string) error {
				if *status != "" && !application.Status(*status).Valid() {
					return usagef("invalid --status %q (want open, in_progress or closed)", *status)
				}
				if *priority != "" && !application.Priority(*priority).Valid() {
					return usagef("invalid --priority %q (want low, medium or high)", *priority)
				}
				tickets := inv.app.tickets.List()
				filtered := tickets[:0]
				for _, ticket := range tickets {
					if *status != "" && string(ticket.Status) != *status {
						continue
					}
					if *priority != "" && string(ticket.Priority) != *priority {
						continue
					}
					filtered = append(filtered, ticket)
				}
				dtos := toTicketDTOs(filtered)
				return inv.render(dtos, func(w io.Writer) error {
					return writeTicketTable(w, dtos)
				})
			}
		},
	}
}

func showCommand() command {
	return command{
		name:    "show",
		usage:   "show ID",
		summary: "Show one ticket",
		auth:    true,
		bind: func(*pflag.FlagSet) runFunc {
			return func(_ context.Context, inv *invocation, args []string) error {
				id, err := parseTicketID(args)
				if err != nil {
					return err
				}
				ticket, err := inv.app.tickets.Get(id)
				if err != nil {
					return err
				}
				return inv.renderTicket(ticket)
			}
		},
	}
}

type ticketFlags struct {
	title       *string
	description *string
	status      *string
	priority    *string
}

func bindTicketFlags(fs *pflag.FlagSet) ticketFlags {
	return ticketFlags{
		title:       fs.StringP("title", "t", "", "ticket title (required, at most 100 characters)"),
		description: fs.StringP("description", "d", "", "ticket description (at most 500 characters)"),
		status:      fs.StringP("status", "s", "", "open, in_progress or closed"),
		priority:    fs.StringP("priority", "p", "", "low, medium or high"),
	}
}

func (f ticketFlags) input() application.TicketInput {
	return application.TicketInput{
		Title:       *f.title,
		Description: *f.description,
		Status:      *f.status,
		Priority:    *f.priority,
	}
}

// mergeOver fills flags the caller did not set from the existing ticket so an
// update always submits a complete input.
func (f ticketFlags) mergeOver(fs *pflag.FlagSet, existing application.Ticket) application.TicketInput {
	input := f.input()
	if !fs.Changed("title") {
		input.Title = existing.Title
	}
	if !fs.Changed("description") {
		input.Description = existing.Description
	}
	if !fs.Changed("status") {
		input.Status = string(existing.Status)
	}
	if !fs.Changed("priority") {
		input.Priority = string(existing.Priority)
	}
	return input
}

func createCommand() command {
	return command{
		name:    "create",
		usage:   "create --title TITLE [--description TEXT] [--status STATUS] [--priority PRIORITY]",
		summary: "Create a ticket",
		auth:    true,
		bind: func(fs *pflag.FlagSet) runFunc {
			flags := bindTicketFlags(fs)
			return func(ctx context.Context, inv *invocation, args []string) error {
				if len(args) > 0 {
					return usagef("create takes no positional arguments")
				}
				ticket, err := inv.app.tickets.Create(ctx, flags.input())
				return inv.reportTicket(ticket, "Ticket created successfully", err)
			}
		},
	}
}

func updateCommand() command {
	return command{
		name:    "update",
		usage:   "update ID [--title TITLE] [--description TEXT] [--status STATUS] [--priority PRIORITY]",
		summary: "Update a ticket; unset flags keep their current value",
		auth:    true,
		bind: func(fs *pflag.FlagSet) runFunc {
			flags := bindTicketFlags(fs)
			return func(ctx context.Context, inv *invocation, args []string) error {
				id, err := parseTicketID(args)
				if err != nil {
					return err
				}
				existing, err := inv.app.tickets.Get(id)
				if err != nil {
					return err
				}
				ticket, err := inv.app.tickets.Update(ctx, id, flags.mergeOver(fs, existing))
				return inv.reportTicket(ticket, "Ticket updated successfully", err)
			}
		},
	}
}

func deleteCommand() command {
	return command{
		name:    "delete",
		usage:   "delete ID",
		summary: "Delete a ticket",
		auth:    true,
		bind: func(*pflag.FlagSet) runFunc {
			return func(ctx context.Context, inv *invocation, args []string) error {
				id, err := parseTicketID(args)
				if err != nil {
					return err
				}
				err = inv.app.tickets.Delete(ctx, id)
				if err != nil && !application.IsPersistenceError(err) {
					return err
				}
				msg := messageDTO{Message: "Ticket deleted successfully"}
				if rErr := inv.render(msg, func(w io.Writer) error {
					_, werr := fmt.Fprintln(w, msg.Message)
					return werr
				}); rErr != nil {
					return rErr
				}
				return err
			}
		},
	}
}

func statsCommand() command {
	return command{
		name:    "stats",
		usage:   "stats",
		summary: "Count tickets by status",
		auth:    true,
		bind: func(*pflag.FlagSet) runFunc {
			return func(_ context.Context, inv *invocation, _ []string) error {
				dto := toStatsDTO(inv.app.tickets.Stats())
				return inv.render(dto, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Total: %d  Open: %d  In progress: %d  Closed: %d\n", dto.Total, dto.Open, dto.InProgress, dto.Closed)
					return err
				})
			}
		},
	}
}

func (inv *invocation) renderTicket(ticket application.Ticket) error {
	dto := toTicketDTO(ticket)
	return inv.render(dto, func(w io.Writer) error {
		return writeTicketDetail(w, dto)
	})
}

// reportTicket renders the outcome of a mutation. The ticket is rendered even
// when only the durable write failed.
func (inv *invocation) reportTicket(ticket application.Ticket, headline string, err error) error {
	if err != nil && !application.IsPersistenceError(err) {
		return err
	}
	if inv.format == FormatText {
		fmt.Fprintln(inv.out, headline)
	}
	if rErr := inv.renderTicket(ticket); rErr != nil {
		return rErr
	}
	return err
}
