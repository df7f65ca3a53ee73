package sqlstore

import (
	"context"

	"github.com/example/grillo/internal/persistence"
)

// CreateLocation inserts a location. A taken id yields persistence.ErrDuplicate.
func (s *Store) CreateLocation(ctx context.Context, location persistence.Location) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO locations (id, name) VALUES (?, ?)`), location.ID, location.Name)
	return mapError(err)
}

// GetLocation returns a location by id.
func (s *Store) GetLocation(ctx context.Context, id string) (persistence.Location, error) {
	var location persistence.Location
	if err := s.db.GetContext(ctx, &location, s.db.Rebind(`SELECT id, name FROM locations WHERE id = ?`), id); err != nil {
		return persistence.Location{}, mapError(err)
	}
	return location, nil
}

// UpdateLocation renames a location.
func (s *Store) UpdateLocation(ctx context.Context, location persistence.Location) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE locations SET name = ? WHERE id = ?`), location.Name, location.ID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

// DeleteLocation removes a location by id.
func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM locations WHERE id = ?`), id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

// ListLocations returns every location ordered by name.
func (s *Store) ListLocations(ctx context.Context) ([]persistence.Location, error) {
	var locations []persistence.Location
	if err := s.db.SelectContext(ctx, &locations, `SELECT id, name FROM locations ORDER BY name, id`); err != nil {
		return nil, mapError(err)
	}
	return locations, nil
}
