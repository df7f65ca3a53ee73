package sqlstore

import (
	"context"

	"github.com/example/grillo/internal/persistence"
)

const eventColumns = `id, start_time, end_time, title, description`

// CreateEvent inserts an event.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	var created persistence.Event
	err := s.db.GetContext(ctx, &created, s.db.Rebind(`
		INSERT INTO events (start_time, end_time, title, description)
		VALUES (?, ?, ?, ?)
		RETURNING `+eventColumns),
		event.StartTime, event.EndTime, event.Title, event.Description,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}
	return created, nil
}

// GetEvent returns an event by id.
func (s *Store) GetEvent(ctx context.Context, id int64) (persistence.Event, error) {
	var event persistence.Event
	if err := s.db.GetContext(ctx, &event, s.db.Rebind(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id); err != nil {
		return persistence.Event{}, mapError(err)
	}
	return event, nil
}

// UpdateEvent overwrites an event.
func (s *Store) UpdateEvent(ctx context.Context, event persistence.Event) (persistence.Event, error) {
	var updated persistence.Event
	err := s.db.GetContext(ctx, &updated, s.db.Rebind(`
		UPDATE events SET start_time = ?, end_time = ?, title = ?, description = ?
		WHERE id = ?
		RETURNING `+eventColumns),
		event.StartTime, event.EndTime, event.Title, event.Description, event.ID,
	)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}
	return updated, nil
}

// DeleteEvent removes an event by id.
func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

// ListEvents returns every event ordered by start time.
func (s *Store) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	var events []persistence.Event
	if err := s.db.SelectContext(ctx, &events, `SELECT `+eventColumns+` FROM events ORDER BY start_time, id`); err != nil {
		return nil, mapError(err)
	}
	return events, nil
}
