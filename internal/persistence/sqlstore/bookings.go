package sqlstore

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/grillo/internal/persistence"
)

const bookingColumns = `id, user_id, start_time, end_time, location`

// CreateBooking inserts a booking.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	var created persistence.Booking
	err := s.db.GetContext(ctx, &created, s.db.Rebind(`
		INSERT INTO bookings (user_id, start_time, end_time, location)
		VALUES (?, ?, ?, ?)
		RETURNING `+bookingColumns),
		booking.UserID, booking.StartTime, booking.EndTime, booking.Location,
	)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return created, nil
}

// GetBooking returns a booking by id.
func (s *Store) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	var booking persistence.Booking
	if err := s.db.GetContext(ctx, &booking, s.db.Rebind(`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`), id); err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return booking, nil
}

// UpdateBooking overwrites the times and location of a booking.
func (s *Store) UpdateBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	var updated persistence.Booking
	err := s.db.GetContext(ctx, &updated, s.db.Rebind(`
		UPDATE bookings SET start_time = ?, end_time = ?, location = ?
		WHERE id = ?
		RETURNING `+bookingColumns),
		booking.StartTime, booking.EndTime, booking.Location, booking.ID,
	)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return updated, nil
}

// DeleteBooking removes a booking by id.
func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM bookings WHERE id = ?`), id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

// ListBookings returns bookings starting at or after StartsAfter that end at
// or before EndsBefore or have no end.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.StartsAfter != 0 {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, filter.StartsAfter)
	}
	if filter.EndsBefore != 0 {
		clauses = append(clauses, "(end_time <= ? OR end_time IS NULL)")
		args = append(args, filter.EndsBefore)
	}
	if len(filter.UserIDs) > 0 {
		clauses = append(clauses, "user_id IN (?)")
		args = append(args, filter.UserIDs)
	}
	if filter.LocationID != nil {
		clauses = append(clauses, "location = ?")
		args = append(args, *filter.LocationID)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time, id`

	query, args, err := s.in(query, args...)
	if err != nil {
		return nil, err
	}

	var bookings []persistence.Booking
	if err := s.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, mapError(err)
	}
	return bookings, nil
}

// DeleteEarliestBooking removes the user's first booking starting in [from, to).
func (s *Store) DeleteEarliestBooking(ctx context.Context, userID string, from, to int64) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var ids []int64
		err := tx.SelectContext(ctx, &ids, tx.Rebind(`
			SELECT id FROM bookings
			WHERE user_id = ? AND start_time >= ? AND start_time < ?
			ORDER BY start_time, id
			LIMIT 1`), userID, from, to)
		if err != nil {
			return mapError(err)
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bookings WHERE id = ?`), ids[0]); err != nil {
			return mapError(err)
		}
		deleted = true
		return nil
	})
	return deleted, err
}
