package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/ticketdesk/internal/config"
	"github.com/example/ticketdesk/internal/persistence"
	"github.com/example/ticketdesk/internal/persistence/memory"
	"github.com/example/ticketdesk/internal/persistence/redis"
	"github.com/example/ticketdesk/internal/persistence/sqlite"
)

// OpenStorage opens the backend selected by cfg.Driver.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (persistence.KeyValueStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLitePath), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil
	case config.DriverRedis:
		store, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
