package sqlstore

import (
	"context"
)

// GetSetting returns the value stored under key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT value FROM settings WHERE id = ?`), key); err != nil {
		return "", mapError(err)
	}
	return value, nil
}

// PutSetting stores value under key, replacing any previous value.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO settings (id, value) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET value = excluded.value`), key, value)
	return mapError(err)
}
