// Package migration applies versioned SQL schema changes.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_initial_schema.sql") and are read from an fs.FS, usually an
// embedded directory with one subdirectory per SQL dialect.
//
// Applied versions are tracked in a schema_migrations table so each file runs
// exactly once. Every migration runs inside its own transaction.
//
// Example usage:
//
//	files, _ := fs.Sub(embedded, "migrations/sqlite")
//	manager := NewManager(NewScanner(files), NewExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
