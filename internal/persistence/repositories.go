package persistence

import "context"

// UserRepository stores the local state of directory users.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
	ListUsersInLocation(ctx context.Context, locationID string) ([]User, error)
	AddUserIfNotExists(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// AuditFilter narrows audit queries. Zero bounds are ignored.
type AuditFilter struct {
	StartsAfter int64
	EndsBefore  int64
	UserIDs     []string
}

// AuditRepository stores attendance intervals and keeps user lab state in step.
type AuditRepository interface {
	// StartAudit inserts an open audit and marks the user present at its
	// location. It fails with ErrOpenAuditExists when one is already open.
	StartAudit(ctx context.Context, audit Audit) (Audit, error)
	// CloseAudit closes an open audit and credits the elapsed time to the user.
	CloseAudit(ctx context.Context, closure AuditClosure) (Audit, error)
	// SwitchAudit closes one audit and opens the next within one transaction.
	SwitchAudit(ctx context.Context, closure AuditClosure, next Audit) (closed Audit, opened Audit, err error)
	CreateAudit(ctx context.Context, audit Audit) (Audit, error)
	GetAudit(ctx context.Context, id int64) (Audit, error)
	ActiveAudit(ctx context.Context, userID string) (Audit, error)
	UpdateAudit(ctx context.Context, audit Audit) (Audit, error)
	DeleteAudit(ctx context.Context, id int64) error
	ListAudits(ctx context.Context, filter AuditFilter) ([]Audit, error)
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	StartsAfter int64
	EndsBefore  int64
	UserIDs     []string
	LocationID  *string
}

// BookingRepository stores reservations.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// DeleteEarliestBooking removes the user's earliest booking starting in
	// [from, to). It reports whether a row was removed.
	DeleteEarliestBooking(ctx context.Context, userID string, from, to int64) (bool, error)
}

// EventRepository stores calendar events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context) ([]Event, error)
}

// LocationRepository stores locations.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) error
	GetLocation(ctx context.Context, id string) (Location, error)
	UpdateLocation(ctx context.Context, location Location) error
	DeleteLocation(ctx context.Context, id string) error
	ListLocations(ctx context.Context) ([]Location, error)
}

// TokenRepository stores API tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token APIToken) error
	GetToken(ctx context.Context, id string) (APIToken, error)
	ListTokens(ctx context.Context) ([]APIToken, error)
	DeleteToken(ctx context.Context, id string) error
}

// CookieRepository stores browser session cookies.
type CookieRepository interface {
	CreateCookie(ctx context.Context, cookie SessionCookie) error
	GetCookie(ctx context.Context, value string) (SessionCookie, error)
	DeleteCookie(ctx context.Context, value string) error
}

// SettingsRepository stores global key/value settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}
