package sqlstore

import (
	"context"

	"github.com/example/grillo/internal/persistence"
)

const userColumns = `id, seconds, active_location`

// ListUsers returns every known user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	var users []persistence.User
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	var user persistence.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// ListUsersInLocation returns users whose open audit is at locationID.
func (s *Store) ListUsersInLocation(ctx context.Context, locationID string) ([]persistence.User, error) {
	var users []persistence.User
	err := s.db.SelectContext(ctx, &users, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE active_location = ? ORDER BY id`), locationID)
	if err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// AddUserIfNotExists inserts a user row unless one exists already.
func (s *Store) AddUserIfNotExists(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING`), id)
	return mapError(err)
}

// DeleteUser removes a user and, through the foreign key, its cookies.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}
