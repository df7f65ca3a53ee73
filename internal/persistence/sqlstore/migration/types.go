package migration

import "time"

// Migration represents a database migration with its metadata and SQL content.
type Migration struct {
	Version     string // numeric version, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration represents a migration recorded in schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status provides information about the current migration state.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}
