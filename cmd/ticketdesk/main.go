package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/ticketdesk/internal/cli"
	"github.com/example/ticketdesk/internal/config"
	"github.com/example/ticketdesk/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to load configuration: %v\n", err)
		return cli.ExitFailure
	}

	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to configure logging: %v\n", err)
		return cli.ExitFailure
	}
	logger = logger.With("run_id", uuid.NewString())
	ctx = logging.ContextWithLogger(ctx, logger)

	storage, err := cli.OpenStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitStorageFailure
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.ErrorContext(ctx, "failed to close storage", "error", cerr)
		}
	}()

	app := cli.NewApp(cli.Options{
		Storage:    storage,
		SessionTTL: cfg.Session.TTL,
		Stdout:     stdout,
		Stderr:     stderr,
		Logger:     logger,
	})
	return app.Run(ctx, args)
}
