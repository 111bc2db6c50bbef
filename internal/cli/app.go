package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/example/ticketdesk/internal/application"
)

type sessionService interface {
	Restore(ctx context.Context) error
	Login(ctx context.Context, email, password string) (application.Session, error)
	Signup(ctx context.Context, email, password, confirmPassword string) (application.Session, error)
	Logout(ctx context.Context) error
	CurrentSession(ctx context.Context) (application.Session, bool)
	TTL() time.Duration
}

type ticketService interface {
	Load(ctx context.Context) ([]application.Ticket, error)
	Create(ctx context.Context, input application.TicketInput) (application.Ticket, error)
	Update(ctx context.Context, id int64, input application.TicketInput) (application.Ticket, error)
	Delete(ctx context.Context, id int64) error
	Get(id int64) (application.Ticket, error)
	List() []application.Ticket
	Stats() application.Stats
}

// App wires the session manager and ticket store for one process and
// dispatches command lines against them.
type App struct {
	sessions sessionService
	tickets  ticketService
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
}

// Options configures NewApp. Zero values fall back to process defaults.
type Options struct {
	Storage    application.Storage
	Now        func() time.Time
	SessionTTL time.Duration
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
}

// NewApp constructs an App whose managers persist into opts.Storage.
func NewApp(opts Options) *App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ids := application.NewTimeIDs(now)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return newApp(
		application.NewSessionManagerWithLogger(opts.Storage, ids, now, opts.SessionTTL, logger),
		application.NewTicketStoreWithLogger(opts.Storage, ids, now, logger),
		opts.Stdout,
		opts.Stderr,
		logger,
	)
}

func newApp(sessions sessionService, tickets ticketService, stdout, stderr io.Writer, logger *slog.Logger) *App {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{sessions: sessions, tickets: tickets, stdout: stdout, stderr: stderr, logger: logger}
}

type runFunc func(ctx context.Context, inv *invocation, args []string) error

type command struct {
	name    string
	usage   string
	summary string
	auth    bool
	bind    func(fs *pflag.FlagSet) runFunc
}

type invocation struct {
	app    *App
	out    io.Writer
	format string
}

func (inv *invocation) render(value any, text func(io.Writer) error) error {
	return render(inv.out, inv.format, value, text)
}

func (inv *invocation) warn(format string, args ...any) {
	fmt.Fprintf(inv.app.stderr, "warning: "+format+"\n", args...)
}

func commands() []command {
	return []command{
		loginCommand(),
		signupCommand(),
		logoutCommand(),
		whoamiCommand(),
		listCommand(),
		showCommand(),
		createCommand(),
		updateCommand(),
		deleteCommand(),
		statsCommand(),
	}
}

// Run executes one command line and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if a == nil {
		return ExitFailure
	}
	err := a.run(ctx, args)
	if errors.Is(err, pflag.ErrHelp) {
		return ExitOK
	}

	code, message, details := describe(err)
	if code != ExitOK {
		a.logger.DebugContext(ctx, "command failed", "error", err, "error_kind", application.ErrorKind(err), "exit_code", code)
		fmt.Fprintln(a.stderr, "error: "+message)
		for _, detail := range details {
			fmt.Fprintln(a.stderr, "  - "+detail)
		}
	}
	return code
}

func (a *App) run(ctx context.Context, args []string) error {
	global := pflag.NewFlagSet("ticketdesk", pflag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.SetInterspersed(false)
	output := global.StringP("output", "o", FormatText, "output format: text, json or yaml")
	help := global.BoolP("help", "h", false, "show help")
	if err := global.Parse(args); err != nil {
		return usagef("%v", err)
	}

	rest := global.Args()
	if *help || len(rest) == 0 || rest[0] == "help" {
		a.printHelp(global)
		if len(rest) == 0 && !*help {
			return usagef("command required")
		}
		return pflag.ErrHelp
	}

	var cmd *command
	for _, candidate := range commands() {
		if candidate.name == rest[0] {
			c := candidate
			cmd = &c
			break
		}
	}
	if cmd == nil {
		return usagef("unknown command %q (run 'ticketdesk help' for usage)", rest[0])
	}

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(output, "output", "o", *output, "output format: text, json or yaml")
	runner := cmd.bind(fs)
	if err := fs.Parse(rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(a.stdout, "Usage: ticketdesk %s\n\n%s\n\nFlags:\n%s", cmd.usage, cmd.summary, fs.FlagUsages())
			return err
		}
		return usagef("%s: %v", cmd.name, err)
	}

	format, err := parseFormat(*output)
	if err != nil {
		return err
	}

	if err := a.sessions.Restore(ctx); err != nil {
		fmt.Fprintf(a.stderr, "warning: saved session could not be read: %v\n", err)
	}

	inv := &invocation{app: a, out: a.stdout, format: format}
	if cmd.auth {
		if _, ok := a.sessions.CurrentSession(ctx); !ok {
			return ErrNotAuthenticated
		}
		if _, err := a.tickets.Load(ctx); err != nil {
			inv.warn("Failed to load tickets: %v", err)
		}
	}

	return runner(ctx, inv, fs.Args())
}

func (a *App) printHelp(global *pflag.FlagSet) {
	var b strings.Builder
	b.WriteString("Usage: ticketdesk [--output text|json|yaml] <command> [flags]\n\nCommands:\n")
	for _, cmd := range commands() {
		fmt.Fprintf(&b, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	b.WriteString("\nGlobal flags:\n")
	b.WriteString(global.FlagUsages())
	fmt.Fprint(a.stdout, b.String())
}
