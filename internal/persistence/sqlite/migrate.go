package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// migration is one forward-only schema step. Versions are applied in order
// and recorded in schema_migrations.
type migration struct {
	Version     int
	Description string
	Statements  []string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "create records table",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS records (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	},
}

// MigrationError wraps a failed schema step with its version.
type MigrationError struct {
	Version   int
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("sqlite: migration %d: %s: %v", e.Version, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

func initializeVersionTable(ctx context.Context, db *sql.DB) error {
	const stmt = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return &MigrationError{Operation: "create schema_migrations table", Err: err}
	}
	return nil
}

func appliedVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, &MigrationError{Operation: "read applied version", Err: err}
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// migrate applies every pending migration, each inside its own transaction.
func migrate(ctx context.Context, db *sql.DB, now func() time.Time) (applied int, err error) {
	if err = initializeVersionTable(ctx, db); err != nil {
		return 0, err
	}
	current, err := appliedVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err = apply(ctx, db, m, now()); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func apply(ctx context.Context, db *sql.DB, m migration, appliedAt time.Time) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Version: m.Version, Operation: "begin transaction", Err: err}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range m.Statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return &MigrationError{Version: m.Version, Operation: fmt.Sprintf("execute statement %d", i+1), Err: execErr}
		}
	}

	const record = `INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`
	if _, execErr := tx.ExecContext(ctx, record, m.Version, m.Description, appliedAt.UTC().Format(time.RFC3339)); execErr != nil {
		return &MigrationError{Version: m.Version, Operation: "record migration", Err: execErr}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return &MigrationError{Version: m.Version, Operation: "commit transaction", Err: commitErr}
	}
	return nil
}
