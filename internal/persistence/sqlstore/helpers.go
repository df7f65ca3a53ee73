package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/example/grillo/internal/persistence"
)

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

var (
	_ persistence.UserRepository     = (*Store)(nil)
	_ persistence.AuditRepository    = (*Store)(nil)
	_ persistence.BookingRepository  = (*Store)(nil)
	_ persistence.EventRepository    = (*Store)(nil)
	_ persistence.LocationRepository = (*Store)(nil)
	_ persistence.TokenRepository    = (*Store)(nil)
	_ persistence.CookieRepository   = (*Store)(nil)
	_ persistence.SettingsRepository = (*Store)(nil)
)
