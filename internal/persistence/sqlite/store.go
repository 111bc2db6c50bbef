// Package sqlite persists records in a single SQLite table through the pure
// Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/ticketdesk/internal/persistence"
)

var _ persistence.KeyValueStore = (*Store)(nil)

// Store implements persistence.KeyValueStore on top of the records table.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Open connects to the database described by cfg and applies pending
// migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, now: time.Now, logger: logger.With("component", "sqlite")}
	applied, err := migrate(ctx, db, store.now)
	if err != nil {
		db.Close()
		return nil, err
	}
	if applied > 0 {
		store.logger.InfoContext(ctx, "applied schema migrations", "count", applied, "path", cfg.Path)
	}
	return store, nil
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", persistence.ErrClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", persistence.ErrNotFound
		}
		return "", mapError("get", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous record.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return persistence.ErrClosed
	}

	const stmt = `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, stmt, key, value, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return mapError("set", key, err)
	}
	return nil
}

// Remove deletes the record stored under key.
func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return persistence.ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return mapError("remove", key, err)
	}
	return nil
}

// SchemaVersion reports the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, persistence.ErrClosed
	}
	return appliedVersion(ctx, s.db)
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ErrLocked reports that SQLite could not obtain a lock within the busy timeout.
var ErrLocked = errors.New("sqlite: database locked")

func mapError(op, key string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return fmt.Errorf("sqlite: %s %s: %w: %v", op, key, ErrLocked, err)
	}
	return fmt.Errorf("sqlite: %s %s: %w", op, key, err)
}
