package application

import (
	"context"
	"time"
)

// UserRepository stores the local lab state of directory users.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]LabState, error)
	GetUser(ctx context.Context, id string) (LabState, error)
	ListUsersInLocation(ctx context.Context, locationID string) ([]LabState, error)
	AddUserIfNotExists(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// IdentitySource answers directory lookups from a cached roster.
type IdentitySource interface {
	Identities(ctx context.Context) ([]Identity, error)
	Identity(ctx context.Context, id string) (Identity, bool)
}

// AuditRepository captures the persistence operations needed by the audit service.
type AuditRepository interface {
	StartAudit(ctx context.Context, audit Audit) (Audit, error)
	CloseAudit(ctx context.Context, closure AuditClosure) (Audit, error)
	SwitchAudit(ctx context.Context, closure AuditClosure, next Audit) (Audit, Audit, error)
	CreateAudit(ctx context.Context, audit Audit) (Audit, error)
	GetAudit(ctx context.Context, id int64) (Audit, error)
	ActiveAudit(ctx context.Context, userID string) (Audit, error)
	UpdateAudit(ctx context.Context, audit Audit) (Audit, error)
	DeleteAudit(ctx context.Context, id int64) error
	ListAudits(ctx context.Context, filter AuditFilter) ([]Audit, error)
}

// BookingRepository captures the persistence operations needed by the booking service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteEarliestBooking(ctx context.Context, userID string, day TimeRange) (bool, error)
}

// BookingConsumer removes the booking a check-in fulfils.
type BookingConsumer interface {
	ConsumeBooking(ctx context.Context, userID string, at time.Time) (bool, error)
}

// EventRepository captures the persistence operations needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context) ([]Event, error)
}

// LocationRepository captures the persistence operations needed for locations.
type LocationRepository interface {
	CreateLocation(ctx context.Context, location Location) (Location, error)
	GetLocation(ctx context.Context, id string) (Location, error)
	UpdateLocation(ctx context.Context, location Location) (Location, error)
	DeleteLocation(ctx context.Context, id string) error
	ListLocations(ctx context.Context) ([]Location, error)
}

// TokenRepository captures the persistence operations needed for API tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token APIToken) error
	GetToken(ctx context.Context, id string) (APIToken, error)
	ListTokens(ctx context.Context) ([]APIToken, error)
	DeleteToken(ctx context.Context, id string) error
}

// CookieRepository captures the persistence operations needed for browser sessions.
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

// Bell delivers a ring to the listeners of a location and waits for an acknowledgment.
type Bell interface {
	Ring(ctx context.Context, locationID string) error
}
