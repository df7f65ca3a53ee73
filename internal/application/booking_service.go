package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// BookingService validates and stores reservations.
type BookingService struct {
	bookings  BookingRepository
	locations LocationRepository
	now       func() time.Time
	zone      *time.Location
	logger    *slog.Logger
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(bookings BookingRepository, locations LocationRepository, now func() time.Time, zone *time.Location) *BookingService {
	return NewBookingServiceWithLogger(bookings, locations, now, zone, nil)
}

// NewBookingServiceWithLogger wires dependencies for the booking service with a custom logger.
func NewBookingServiceWithLogger(bookings BookingRepository, locations LocationRepository, now func() time.Time, zone *time.Location, logger *slog.Logger) *BookingService {
	if now == nil {
		now = time.Now
	}
	if zone == nil {
		zone = time.Local
	}
	return &BookingService{
		bookings:  bookings,
		locations: locations,
		now:       now,
		zone:      zone,
		logger:    defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

func (s *BookingService) ready() error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}
	return nil
}

// Create stores a booking for the caller, or for another user when the
// caller is an admin.
func (s *BookingService) Create(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create", append(sessionAttrs(params.Session), "user_id", params.Input.UserID)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "booking create failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking created", "booking_id", booking.ID)
	}()

	var userID string
	userID, err = actingUser(params.Session, params.Input.UserID)
	if err != nil {
		return
	}

	if err = s.validate(params.Session, params.Input); err != nil {
		return
	}

	booking = Booking{
		UserID: userID,
		Start:  truncateSecond(params.Input.Start),
		End:    truncatedPtr(params.Input.End),
	}
	if booking.Location, err = s.locationRef(ctx, params.Input.LocationID); err != nil {
		return
	}

	booking, err = s.bookings.CreateBooking(ctx, booking)
	return
}

// Edit replaces the time window of a booking. Only the owner or an admin may edit.
func (s *BookingService) Edit(ctx context.Context, params EditBookingParams) (booking Booking, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Edit", append(sessionAttrs(params.Session), "booking_id", params.BookingID)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "booking edit failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking edited")
	}()

	if err = Authorize(params.Session, TierReadWrite); err != nil {
		return
	}

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = wrapNotFound(err, "Booking not found")
		return
	}
	if !canManage(params.Session, existing.UserID) {
		err = failure(ErrUnauthorized, "Not authorized")
		return
	}

	if err = s.validate(params.Session, params.Input); err != nil {
		return
	}

	updated := existing
	updated.Start = truncateSecond(params.Input.Start)
	updated.End = truncatedPtr(params.Input.End)
	if params.Input.LocationID != nil {
		if updated.Location, err = s.locationRef(ctx, params.Input.LocationID); err != nil {
			return
		}
	}

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	return
}

// Delete removes a booking. Only the owner or an admin may delete.
func (s *BookingService) Delete(ctx context.Context, session Session, id int64) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", append(sessionAttrs(session), "booking_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "booking delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	if err = Authorize(session, TierReadWrite); err != nil {
		return
	}

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, id)
	if err != nil {
		err = wrapNotFound(err, "Booking not found")
		return
	}
	if !canManage(session, existing.UserID) {
		err = failure(ErrUnauthorized, "Not authorized")
		return
	}

	err = s.bookings.DeleteBooking(ctx, id)
	return
}

// Get returns a single booking.
func (s *BookingService) Get(ctx context.Context, session Session, id int64) (Booking, error) {
	if err := s.ready(); err != nil {
		return Booking{}, err
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return Booking{}, err
	}
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, wrapNotFound(err, "Booking not found")
	}
	return booking, nil
}

// List returns the bookings of the ISO week containing the reference date.
func (s *BookingService) List(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := Authorize(params.Session, TierReadOnly); err != nil {
		return nil, err
	}

	ref := s.now()
	if params.Date != nil {
		ref = *params.Date
	}

	var location *string
	if params.LocationID != nil {
		if trimmed := strings.TrimSpace(*params.LocationID); trimmed != "" {
			location = &trimmed
		}
	}

	bookings, err := s.bookings.ListBookings(ctx, BookingFilter{
		Range:      WeekRange(ref, s.zone),
		UserIDs:    cleanIDs(params.UserIDs),
		LocationID: location,
	})
	if err != nil {
		s.loggerWith(ctx, "List").ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return bookings, nil
}

// ConsumeBooking removes the user's earliest booking of the day containing at.
func (s *BookingService) ConsumeBooking(ctx context.Context, userID string, at time.Time) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.bookings.DeleteEarliestBooking(ctx, userID, DayRange(at, s.zone))
}

func (s *BookingService) validate(session Session, input BookingInput) error {
	vErr := &ValidationError{}
	if session.IsAdmin() && input.End == nil {
		vErr.add("endTime", "Admins must provide end time")
	}
	if !input.Start.IsZero() && input.Start.Unix() < s.now().Unix() {
		vErr.add("startTime", "The start time cannot be in the past")
	}
	vErr.merge(validateInterval(input.Start, input.End))
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *BookingService) locationRef(ctx context.Context, id *string) (*string, error) {
	if id == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil, nil
	}
	location, err := lookupLocation(ctx, s.locations, trimmed)
	if err != nil {
		return nil, err
	}
	return &location.ID, nil
}

func truncatedPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := truncateSecond(*t)
	return &out
}
