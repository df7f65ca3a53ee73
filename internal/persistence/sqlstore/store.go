// Package sqlstore implements the persistence repositories on top of
// database/sql through sqlx. SQLite (modernc.org/sqlite) and PostgreSQL
// (pgx stdlib driver) are supported; the DSN picks the driver.
package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/example/grillo/internal/persistence/sqlstore/migration"
)

//go:embed migrations
var migrationFiles embed.FS

// Dialect identifies the SQL flavour behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store implements every persistence repository.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	retry   RetryConfig
	logger  *slog.Logger
}

// DialectFor reports which dialect a DSN selects.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// SQLiteDSN builds a modernc DSN for a database file with the pragmas the
// store relies on.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
}

// Open connects to the database named by dsn and verifies connectivity.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialect := DialectFor(dsn)

	driver := "sqlite"
	if dialect == DialectPostgres {
		driver = "pgx"
	} else if !strings.HasPrefix(dsn, "file:") {
		dsn = SQLiteDSN(dsn)
	} else if !strings.Contains(dsn, "_pragma=foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One writer at a time keeps SQLite free of SQLITE_BUSY storms.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return &Store{
		db:      db,
		dialect: dialect,
		retry:   DefaultRetryConfig(),
		logger:  logger.With("component", "sqlstore", "dialect", string(dialect)),
	}, nil
}

// Dialect returns the SQL flavour of the store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := fs.Sub(migrationFiles, "migrations/"+string(s.dialect))
	if err != nil {
		return fmt.Errorf("locate %s migrations: %w", s.dialect, err)
	}
	manager := migration.NewManager(migration.NewScanner(files), migration.NewExecutor(s.db), s.logger)
	return manager.Run(ctx)
}

// withTx runs fn inside a transaction, retrying the whole unit while the
// database reports itself busy.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return s.retry.do(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
		}()

		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", mapError(err))
		}
		return nil
	})
}

// in expands a query holding an IN (?) clause and rebinds it.
func (s *Store) in(query string, args ...any) (string, []any, error) {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return s.db.Rebind(expanded), expandedArgs, nil
}
