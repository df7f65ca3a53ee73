package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// UserLookup resolves a user id to a directory-merged user.
type UserLookup interface {
	Lookup(ctx context.Context, id string) (User, error)
}

// SecretVerifier compares a stored hash with a candidate secret.
type SecretVerifier func(hash, secret string) error

// AuthenticateParams carries the credentials presented with a request.
type AuthenticateParams struct {
	Cookie string
	Bearer string
}

// AuthService resolves cookies and bearer tokens into sessions and issues
// browser cookies.
type AuthService struct {
	cookies  CookieRepository
	tokens   TokenRepository
	users    UserLookup
	verify   SecretVerifier
	generate func() string
	logger   *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(cookies CookieRepository, tokens TokenRepository, users UserLookup, verify SecretVerifier, generate func() string) *AuthService {
	return NewAuthServiceWithLogger(cookies, tokens, users, verify, generate, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(cookies CookieRepository, tokens TokenRepository, users UserLookup, verify SecretVerifier, generate func() string, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifySecret
	}
	if generate == nil {
		generate = func() string {
			value, _ := RandomString(27)
			return value
		}
	}
	return &AuthService{
		cookies:  cookies,
		tokens:   tokens,
		users:    users,
		verify:   verify,
		generate: generate,
		logger:   defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate resolves the presented credentials. A cookie is tried first,
// then a bearer token of the form id:secret. Any miss yields ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (Session, error) {
	if s == nil {
		return nil, fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "Authenticate")

	if cookie := strings.TrimSpace(params.Cookie); cookie != "" && s.cookies != nil {
		session, err := s.fromCookie(ctx, cookie)
		switch {
		case err == nil:
			return session, nil
		case !errors.Is(err, ErrUnauthenticated):
			logger.ErrorContext(ctx, "cookie lookup failed", "error", err, "error_kind", ErrorKind(err))
			return nil, err
		}
		logger.DebugContext(ctx, "cookie did not resolve to a session")
	}

	if bearer := strings.TrimSpace(params.Bearer); bearer != "" && s.tokens != nil {
		session, err := s.fromToken(ctx, bearer)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				logger.InfoContext(ctx, "bearer token rejected")
			} else {
				logger.ErrorContext(ctx, "token lookup failed", "error", err, "error_kind", ErrorKind(err))
			}
			return nil, err
		}
		return session, nil
	}

	return nil, ErrUnauthenticated
}

func (s *AuthService) fromCookie(ctx context.Context, value string) (Session, error) {
	cookie, err := s.cookies.GetCookie(ctx, value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if s.users == nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.Lookup(ctx, cookie.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return UserSession{User: user, Cookie: value}, nil
}

func (s *AuthService) fromToken(ctx context.Context, presented string) (Session, error) {
	id, secret, ok := strings.Cut(presented, ":")
	if !ok || id == "" || secret == "" {
		return nil, ErrUnauthenticated
	}
	token, err := s.tokens.GetToken(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if err := s.verify(token.Hash, secret); err != nil {
		return nil, ErrUnauthenticated
	}
	token.Hash = ""
	return APISession{Token: token}, nil
}

// IssueCookie creates a browser session for a known user and returns the
// cookie value. Colliding values are regenerated.
func (s *AuthService) IssueCookie(ctx context.Context, userID, description string) (value string, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.cookies == nil || s.users == nil {
		err = fmt.Errorf("cookie repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "IssueCookie", "user_id", userID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "cookie issue failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cookie issued")
	}()

	if _, err = s.users.Lookup(ctx, userID); err != nil {
		err = wrapNotFound(err, "User not found")
		return
	}

	var note *string
	if trimmed := strings.TrimSpace(description); trimmed != "" {
		note = &trimmed
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		candidate := s.generate()
		err = s.cookies.CreateCookie(ctx, SessionCookie{Value: candidate, UserID: userID, Description: note})
		if err == nil {
			value = candidate
			return
		}
		if !errors.Is(err, ErrAlreadyExists) {
			return
		}
		logger.DebugContext(ctx, "cookie collided, retrying", "attempt", attempt)
	}
	err = fmt.Errorf("cookie collided %d times: %w", maxIssueAttempts, err)
	return
}

// RevokeCookie ends a browser session. API sessions cannot be revoked this way.
func (s *AuthService) RevokeCookie(ctx context.Context, session Session) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "RevokeCookie", sessionAttrs(session)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "cookie revoke failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cookie revoked")
	}()

	if err = Authorize(session, TierReadOnly); err != nil {
		return
	}
	userSession, ok := session.(UserSession)
	if !ok {
		err = failure(ErrUnauthorized, "Forbidden")
		return
	}
	if s.cookies == nil {
		err = fmt.Errorf("cookie repository not configured")
		return
	}
	if err = s.cookies.DeleteCookie(ctx, userSession.Cookie); errors.Is(err, ErrNotFound) {
		err = nil
	}
	return
}
