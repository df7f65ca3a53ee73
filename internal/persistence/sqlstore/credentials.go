package sqlstore

import (
	"context"

	"github.com/example/grillo/internal/persistence"
)

const tokenColumns = `id, hash, read_only, admin, description`

// CreateToken inserts an API token. An id collision yields persistence.ErrDuplicate.
func (s *Store) CreateToken(ctx context.Context, token persistence.APIToken) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO api_tokens (id, hash, read_only, admin, description)
		VALUES (?, ?, ?, ?, ?)`),
		token.ID, token.Hash, token.ReadOnly, token.Admin, token.Description,
	)
	return mapError(err)
}

// GetToken returns a token by id.
func (s *Store) GetToken(ctx context.Context, id string) (persistence.APIToken, error) {
	var token persistence.APIToken
	if err := s.db.GetContext(ctx, &token, s.db.Rebind(`SELECT `+tokenColumns+` FROM api_tokens WHERE id = ?`), id); err != nil {
		return persistence.APIToken{}, mapError(err)
	}
	return token, nil
}

// ListTokens returns every token ordered by id.
func (s *Store) ListTokens(ctx context.Context) ([]persistence.APIToken, error) {
	var tokens []persistence.APIToken
	if err := s.db.SelectContext(ctx, &tokens, `SELECT `+tokenColumns+` FROM api_tokens ORDER BY id`); err != nil {
		return nil, mapError(err)
	}
	return tokens, nil
}

// DeleteToken removes a token by id.
func (s *Store) DeleteToken(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM api_tokens WHERE id = ?`), id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

// CreateCookie inserts a session cookie. A collision yields persistence.ErrDuplicate.
func (s *Store) CreateCookie(ctx context.Context, cookie persistence.SessionCookie) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO session_cookies (cookie, user_id, description) VALUES (?, ?, ?)`),
		cookie.Cookie, cookie.UserID, cookie.Description)
	return mapError(err)
}

// GetCookie returns the cookie row for value.
func (s *Store) GetCookie(ctx context.Context, value string) (persistence.SessionCookie, error) {
	var cookie persistence.SessionCookie
	err := s.db.GetContext(ctx, &cookie, s.db.Rebind(`SELECT cookie, user_id, description FROM session_cookies WHERE cookie = ?`), value)
	if err != nil {
		return persistence.SessionCookie{}, mapError(err)
	}
	return cookie, nil
}

// DeleteCookie removes a cookie.
func (s *Store) DeleteCookie(ctx context.Context, value string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM session_cookies WHERE cookie = ?`), value)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}
