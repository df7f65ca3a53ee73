package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/grillo/internal/persistence"
	"github.com/example/grillo/internal/persistence/sqlstore"
)

// SQLiteHarness is a migrated store in a temporary file. Path can be handed
// to code that opens its own connection.
type SQLiteHarness struct {
	Path  string
	Store *sqlstore.Store

	Users     persistence.UserRepository
	Audits    persistence.AuditRepository
	Bookings  persistence.BookingRepository
	Locations persistence.LocationRepository
	Tokens    persistence.TokenRepository
	Cookies   persistence.CookieRepository
	Settings  persistence.SettingsRepository

	cleanup func()
}

// Close releases the store. It is also registered with tb.Cleanup.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh SQLite database.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "grillo.db")
	store, err := sqlstore.Open(context.Background(), path, nil)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate store: %v", err)
	}

	harness := &SQLiteHarness{
		Path:      path,
		Store:     store,
		Users:     store,
		Audits:    store,
		Bookings:  store,
		Locations: store,
		Tokens:    store,
		Cookies:   store,
		Settings:  store,
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedLocations inserts the given locations.
func (h *SQLiteHarness) SeedLocations(tb testing.TB, locations ...LocationFixture) {
	tb.Helper()
	for _, location := range locations {
		if err := h.Locations.CreateLocation(context.Background(), location.Persistence()); err != nil {
			tb.Fatalf("failed to seed location %s: %v", location.ID, err)
		}
	}
}

// SeedMembers creates the local rows of the given members.
func (h *SQLiteHarness) SeedMembers(tb testing.TB, members ...MemberFixture) {
	tb.Helper()
	for _, member := range members {
		if err := h.Users.AddUserIfNotExists(context.Background(), member.ID); err != nil {
			tb.Fatalf("failed to seed member %s: %v", member.ID, err)
		}
	}
}
