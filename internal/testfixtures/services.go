package testfixtures

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/grillo/internal/application"
)

// ServiceFactory builds application services on a shared clock, id
// sequence and time zone so tests can predict timestamps and secrets.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Zone        *time.Location
}

type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory returns a factory on ReferenceTime, UTC and the "id" prefix.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Zone == nil {
		factory.Zone = time.UTC
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func WithZone(zone *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Zone = zone
	}
}

// AuditServiceDeps captures dependencies for constructing an audit service.
type AuditServiceDeps struct {
	Audits    application.AuditRepository
	Locations application.LocationRepository
	Settings  application.SettingsRepository
	Bookings  application.BookingConsumer
	Logger    *slog.Logger
}

func (f *ServiceFactory) NewAuditService(deps AuditServiceDeps) *application.AuditService {
	return application.NewAuditServiceWithLogger(
		deps.Audits,
		deps.Locations,
		deps.Settings,
		deps.Bookings,
		f.Clock.NowFunc(),
		f.Zone,
		deps.Logger,
	)
}

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Bookings  application.BookingRepository
	Locations application.LocationRepository
	Logger    *slog.Logger
}

func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	return application.NewBookingServiceWithLogger(deps.Bookings, deps.Locations, f.Clock.NowFunc(), f.Zone, deps.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
// Cookie values come from the factory's id sequence.
type AuthServiceDeps struct {
	Cookies application.CookieRepository
	Tokens  application.TokenRepository
	Users   application.UserLookup
	Logger  *slog.Logger
}

func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthServiceWithLogger(
		deps.Cookies,
		deps.Tokens,
		deps.Users,
		application.VerifySecret,
		f.IDGenerator.NextFunc(),
		deps.Logger,
	)
}

// TokenServiceDeps captures dependencies for constructing a token service.
type TokenServiceDeps struct {
	Tokens application.TokenRepository
	Logger *slog.Logger
}

// NewTokenService hashes with bcrypt.MinCost to keep tests fast.
func (f *ServiceFactory) NewTokenService(deps TokenServiceDeps) *application.TokenService {
	return application.NewTokenServiceWithLogger(deps.Tokens, f.IDGenerator.SecretFunc(), bcrypt.MinCost, deps.Logger)
}
