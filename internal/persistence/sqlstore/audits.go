package sqlstore

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/grillo/internal/persistence"
)

const auditColumns = `id, user_id, start_time, end_time, location, summary, approved`

// StartAudit inserts an open audit and records the user's active location.
func (s *Store) StartAudit(ctx context.Context, audit persistence.Audit) (persistence.Audit, error) {
	var opened persistence.Audit
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		opened, err = startAuditTx(ctx, tx, audit)
		return err
	})
	return opened, err
}

// CloseAudit closes an open audit and credits the elapsed seconds to its user.
func (s *Store) CloseAudit(ctx context.Context, closure persistence.AuditClosure) (persistence.Audit, error) {
	var closed persistence.Audit
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		closed, err = closeAuditTx(ctx, tx, closure)
		return err
	})
	return closed, err
}

// SwitchAudit closes the current audit and opens the next one atomically.
func (s *Store) SwitchAudit(ctx context.Context, closure persistence.AuditClosure, next persistence.Audit) (persistence.Audit, persistence.Audit, error) {
	var closed, opened persistence.Audit
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if closed, err = closeAuditTx(ctx, tx, closure); err != nil {
			return err
		}
		opened, err = startAuditTx(ctx, tx, next)
		return err
	})
	return closed, opened, err
}

func startAuditTx(ctx context.Context, tx *sqlx.Tx, audit persistence.Audit) (persistence.Audit, error) {
	var opened persistence.Audit
	err := tx.GetContext(ctx, &opened, tx.Rebind(`
		INSERT INTO audits (user_id, start_time, end_time, location, summary, approved)
		VALUES (?, ?, NULL, ?, NULL, ?)
		RETURNING `+auditColumns),
		audit.UserID, audit.StartTime, audit.Location, audit.Approved,
	)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Audit{}, persistence.ErrOpenAuditExists
		}
		return persistence.Audit{}, err
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET active_location = ? WHERE id = ?`), audit.Location, audit.UserID); err != nil {
		return persistence.Audit{}, mapError(err)
	}
	return opened, nil
}

func closeAuditTx(ctx context.Context, tx *sqlx.Tx, closure persistence.AuditClosure) (persistence.Audit, error) {
	var closed persistence.Audit
	err := tx.GetContext(ctx, &closed, tx.Rebind(`
		UPDATE audits SET end_time = ?, summary = ?, approved = ?
		WHERE id = ? AND end_time IS NULL
		RETURNING `+auditColumns),
		closure.EndTime, closure.Summary, closure.Approved, closure.AuditID,
	)
	if err != nil {
		return persistence.Audit{}, mapError(err)
	}

	elapsed := closure.EndTime - closed.StartTime
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET seconds = seconds + ?, active_location = NULL WHERE id = ?`), elapsed, closed.UserID); err != nil {
		return persistence.Audit{}, mapError(err)
	}
	return closed, nil
}

// CreateAudit inserts a complete audit record.
func (s *Store) CreateAudit(ctx context.Context, audit persistence.Audit) (persistence.Audit, error) {
	var created persistence.Audit
	err := s.db.GetContext(ctx, &created, s.db.Rebind(`
		INSERT INTO audits (user_id, start_time, end_time, location, summary, approved)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+auditColumns),
		audit.UserID, audit.StartTime, audit.EndTime, audit.Location, audit.Summary, audit.Approved,
	)
	if err != nil {
		err = mapError(err)
		if audit.EndTime == nil && errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Audit{}, persistence.ErrOpenAuditExists
		}
		return persistence.Audit{}, err
	}
	return created, nil
}

// GetAudit returns an audit by id.
func (s *Store) GetAudit(ctx context.Context, id int64) (persistence.Audit, error) {
	var audit persistence.Audit
	if err := s.db.GetContext(ctx, &audit, s.db.Rebind(`SELECT `+auditColumns+` FROM audits WHERE id = ?`), id); err != nil {
		return persistence.Audit{}, mapError(err)
	}
	return audit, nil
}

// ActiveAudit returns the user's open audit, most recent first.
func (s *Store) ActiveAudit(ctx context.Context, userID string) (persistence.Audit, error) {
	var audit persistence.Audit
	err := s.db.GetContext(ctx, &audit, s.db.Rebind(`
		SELECT `+auditColumns+` FROM audits
		WHERE user_id = ? AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1`), userID)
	if err != nil {
		return persistence.Audit{}, mapError(err)
	}
	return audit, nil
}

// UpdateAudit overwrites the mutable fields of an audit. Moving an open
// audit also moves the user's active location.
func (s *Store) UpdateAudit(ctx context.Context, audit persistence.Audit) (persistence.Audit, error) {
	var updated persistence.Audit
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &updated, tx.Rebind(`
			UPDATE audits SET start_time = ?, end_time = ?, summary = ?, approved = ?, location = ?
			WHERE id = ?
			RETURNING `+auditColumns),
			audit.StartTime, audit.EndTime, audit.Summary, audit.Approved, audit.Location, audit.ID,
		)
		if err != nil {
			return mapError(err)
		}
		if updated.EndTime == nil {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET active_location = ? WHERE id = ?`), updated.Location, updated.UserID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return persistence.Audit{}, err
	}
	return updated, nil
}

// DeleteAudit removes an audit. Deleting an open audit also clears the
// user's active location.
func (s *Store) DeleteAudit(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var audit persistence.Audit
		if err := tx.GetContext(ctx, &audit, tx.Rebind(`SELECT `+auditColumns+` FROM audits WHERE id = ?`), id); err != nil {
			return mapError(err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM audits WHERE id = ?`), id); err != nil {
			return mapError(err)
		}
		if audit.EndTime == nil {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET active_location = NULL WHERE id = ?`), audit.UserID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListAudits returns audits starting at or after StartsAfter and ending at or
// before EndsBefore. Open audits inside the window are included.
func (s *Store) ListAudits(ctx context.Context, filter persistence.AuditFilter) ([]persistence.Audit, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.StartsAfter != 0 {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, filter.StartsAfter)
	}
	if filter.EndsBefore != 0 {
		clauses = append(clauses, "(end_time <= ? OR (end_time IS NULL AND start_time <= ?))")
		args = append(args, filter.EndsBefore, filter.EndsBefore)
	}
	if len(filter.UserIDs) > 0 {
		clauses = append(clauses, "user_id IN (?)")
		args = append(args, filter.UserIDs)
	}

	query := `SELECT ` + auditColumns + ` FROM audits`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time, id`

	query, args, err := s.in(query, args...)
	if err != nil {
		return nil, err
	}

	var audits []persistence.Audit
	if err := s.db.SelectContext(ctx, &audits, query, args...); err != nil {
		return nil, mapError(err)
	}
	return audits, nil
}
