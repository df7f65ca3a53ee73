package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Executor runs migrations and maintains the schema_migrations table.
type Executor struct {
	db *sqlx.DB
}

// NewExecutor returns an executor bound to db. Queries are rebound to the
// driver's placeholder style, so the same executor serves SQLite and PostgreSQL.
func NewExecutor(db *sqlx.DB) *Executor {
	return &Executor{db: db}
}

// InitializeVersionTable creates schema_migrations if it does not exist.
func (e *Executor) InitializeVersionTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at BIGINT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms BIGINT NOT NULL DEFAULT 0
		)`
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return newDatabaseError("", "create schema_migrations table", err)
	}
	return nil
}

// Execute runs every statement of m and records it, all in one transaction.
func (e *Executor) Execute(ctx context.Context, m Migration) (err error) {
	statements := splitStatements(m.SQL)
	if len(statements) == 0 {
		return NewMigrationError(m.Version, m.FilePath, "parse SQL", fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	start := time.Now()
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return newDatabaseError(m.Version, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			err = newDatabaseError(m.Version, fmt.Sprintf("execute statement %d", i+1), execErr)
			return err
		}
	}

	record := tx.Rebind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	if _, err = tx.ExecContext(ctx, record, m.Version, time.Now().UTC().Unix(), m.Checksum, time.Since(start).Milliseconds()); err != nil {
		err = newDatabaseError(m.Version, "record migration", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = newDatabaseError(m.Version, "commit transaction", err)
		return err
	}
	return nil
}

// IsVersionApplied reports whether version is recorded.
func (e *Executor) IsVersionApplied(ctx context.Context, version string) (bool, error) {
	var one int
	err := e.db.GetContext(ctx, &one, e.db.Rebind(`SELECT 1 FROM schema_migrations WHERE version = ?`), version)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, newDatabaseError(version, "check version applied", err)
	}
	return true, nil
}

// Applied returns every recorded migration ordered by version.
func (e *Executor) Applied(ctx context.Context) ([]AppliedMigration, error) {
	var rows []struct {
		Version         string `db:"version"`
		AppliedAt       int64  `db:"applied_at"`
		Checksum        string `db:"checksum"`
		ExecutionTimeMS int64  `db:"execution_time_ms"`
	}
	err := e.db.SelectContext(ctx, &rows, `SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, newDatabaseError("", "list applied migrations", err)
	}

	applied := make([]AppliedMigration, 0, len(rows))
	for _, row := range rows {
		applied = append(applied, AppliedMigration{
			Version:       row.Version,
			AppliedAt:     time.Unix(row.AppliedAt, 0).UTC(),
			ExecutionTime: time.Duration(row.ExecutionTimeMS) * time.Millisecond,
			Checksum:      row.Checksum,
		})
	}
	return applied, nil
}
