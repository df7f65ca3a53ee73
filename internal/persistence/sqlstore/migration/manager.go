package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager orchestrates scanning, comparing and executing migrations.
type Manager struct {
	scanner  *Scanner
	executor *Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and executor together.
func NewManager(scanner *Scanner, executor *Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every pending migration in version order. Applied migrations
// whose files changed afterwards abort the run.
func (m *Manager) Run(ctx context.Context) error {
	start := time.Now()
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "schema status",
		"current_version", status.CurrentVersion,
		"pending_count", status.PendingCount,
	)

	for i, pending := range status.PendingMigrations {
		logger := m.logger.With("version", pending.Version, "description", pending.Description)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "total", status.PendingCount)

		if err := m.executor.Execute(ctx, pending); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(pending.Version, pending.FilePath, "execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	if status.PendingCount > 0 {
		m.logger.InfoContext(ctx, "migrations applied", "count", status.PendingCount, "duration", time.Since(start))
	}
	return nil
}

// Status compares the files on disk with schema_migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[a.Version] = a
	}

	status := Status{AppliedMigrations: applied}
	for _, candidate := range available {
		record, ok := appliedByVersion[candidate.Version]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, candidate)
			continue
		}
		if record.Checksum != "" && record.Checksum != candidate.Checksum {
			return Status{}, NewMigrationError(candidate.Version, candidate.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	status.PendingCount = len(status.PendingMigrations)
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}
