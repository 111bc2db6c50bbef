package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/example/ticketdesk/internal/application"
)

func loginCommand() command {
	return command{
		name:    "login",
		usage:   "login --email EMAIL --password PASSWORD",
		summary: "Start a session",
		bind: func(fs *pflag.FlagSet) runFunc {
			email := fs.StringP("email", "e", "", "account email")
			password := fs.StringP("password", "p", "", "account password")
			return func(ctx context.Context, inv *invocation, _ []string) error {
				session, err := inv.app.sessions.Login(ctx, *email, *password)
				return inv.reportSession(session, err)
			}
		},
	}
}

func signupCommand() command {
	return command{
		name:    "signup",
		usage:   "signup --email EMAIL --password PASSWORD --confirm-password PASSWORD",
		summary: "Register and start a session",
		bind: func(fs *pflag.FlagSet) runFunc {
			email := fs.StringP("email", "e", "", "account email")
			password := fs.StringP("password", "p", "", "account password")
			confirm := fs.String("confirm-password", "", "repeat the password")
			return func(ctx context.Context, inv *invocation, _ []string) error {
				session, err := inv.app.sessions.Signup(ctx, *email, *password, *confirm)
				return inv.reportSession(session, err)
			}
		},
	}
}

// reportSession renders a freshly established session. A persistence failure
// still renders the session before the error is returned.
func (inv *invocation) reportSession(session application.Session, err error) error {
	if err != nil && !application.IsPersistenceError(err) {
		return err
	}
	dto := toSessionDTO(session, inv.app.sessions.TTL())
	if rErr := inv.render(dto, func(w io.Writer) error {
		_, werr := fmt.Fprintf(w, "Authentication successful! Logged in as %s until %s\n", dto.Email, dto.ExpiresAt)
		return werr
	}); rErr != nil {
		return rErr
	}
	return err
}

func logoutCommand() command {
	return command{
		name:    "logout",
		usage:   "logout",
		summary: "End the current session",
		bind: func(*pflag.FlagSet) runFunc {
			return func(ctx context.Context, inv *invocation, _ []string) error {
				if err := inv.app.sessions.Logout(ctx); err != nil {
					return err
				}
				msg := messageDTO{Message: "Logged out"}
				return inv.render(msg, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, msg.Message)
					return err
				})
			}
		},
	}
}

func whoamiCommand() command {
	return command{
		name:    "whoami",
		usage:   "whoami",
		summary: "Show the active session",
		bind: func(*pflag.FlagSet) runFunc {
			return func(ctx context.Context, inv *invocation, _ []string) error {
				session, ok := inv.app.sessions.CurrentSession(ctx)
				if !ok {
					return ErrNotAuthenticated
				}
				dto := toSessionDTO(session, inv.app.sessions.TTL())
				return inv.render(dto, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s (session %d, expires %s)\n", dto.Email, dto.ID, dto.ExpiresAt)
					return err
				})
			}
		},
	}
}
