package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const (
	tokenIDLength     = 20
	tokenSecretLength = 32
	maxIssueAttempts  = 5
)

// TokenService issues and manages API tokens. Every operation is admin only.
type TokenService struct {
	tokens   TokenRepository
	generate func(n int) (string, error)
	cost     int
	logger   *slog.Logger
}

// NewTokenService wires dependencies for the token service.
func NewTokenService(tokens TokenRepository, generate func(n int) (string, error), cost int) *TokenService {
	return NewTokenServiceWithLogger(tokens, generate, cost, nil)
}

// NewTokenServiceWithLogger wires dependencies for the token service with a custom logger.
func NewTokenServiceWithLogger(tokens TokenRepository, generate func(n int) (string, error), cost int, logger *slog.Logger) *TokenService {
	if generate == nil {
		generate = RandomString
	}
	if cost <= 0 {
		cost = DefaultSecretCost
	}
	return &TokenService{tokens: tokens, generate: generate, cost: cost, logger: defaultLogger(logger)}
}

func (s *TokenService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TokenService", operation, attrs...)
}

func (s *TokenService) ready() error {
	if s == nil {
		return fmt.Errorf("TokenService is nil")
	}
	if s.tokens == nil {
		return fmt.Errorf("token repository not configured")
	}
	return nil
}

// Create issues a token and returns its secret. The secret is not stored and
// cannot be recovered later.
func (s *TokenService) Create(ctx context.Context, params CreateTokenParams) (issued IssuedToken, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create", sessionAttrs(params.Session)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "token create failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token issued", "token_id", issued.Token, "read_only", params.ReadOnly, "admin", params.Admin)
	}()

	if err = Authorize(params.Session, TierAdmin); err != nil {
		return
	}

	description := strings.TrimSpace(params.Description)
	vErr := &ValidationError{}
	if description == "" {
		vErr.add("description", "description is required")
	}
	if params.ReadOnly && params.Admin {
		vErr.add("admin", "A token cannot be both read-only and admin")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		var id, secret, hash string
		if id, err = s.generate(tokenIDLength); err != nil {
			return
		}
		if secret, err = s.generate(tokenSecretLength); err != nil {
			return
		}
		if hash, err = HashSecret(secret, s.cost); err != nil {
			return
		}

		err = s.tokens.CreateToken(ctx, APIToken{
			ID:          id,
			Hash:        hash,
			ReadOnly:    params.ReadOnly,
			Admin:       params.Admin,
			Description: description,
		})
		if err == nil {
			issued = IssuedToken{Token: id, Password: secret, FullString: id + ":" + secret}
			return
		}
		if !errors.Is(err, ErrAlreadyExists) {
			return
		}
		logger.DebugContext(ctx, "token id collided, retrying", "attempt", attempt)
	}
	err = fmt.Errorf("token id collided %d times: %w", maxIssueAttempts, err)
	return
}

// List returns every token without its hash.
func (s *TokenService) List(ctx context.Context, session Session) ([]APIToken, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := Authorize(session, TierAdmin); err != nil {
		return nil, err
	}
	tokens, err := s.tokens.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tokens {
		tokens[i].Hash = ""
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return tokens, nil
}

// Get returns a token without its hash.
func (s *TokenService) Get(ctx context.Context, session Session, id string) (APIToken, error) {
	if err := s.ready(); err != nil {
		return APIToken{}, err
	}
	if err := Authorize(session, TierAdmin); err != nil {
		return APIToken{}, err
	}
	token, err := s.tokens.GetToken(ctx, id)
	if err != nil {
		return APIToken{}, wrapNotFound(err, "Token not found")
	}
	token.Hash = ""
	return token, nil
}

// Delete revokes a token.
func (s *TokenService) Delete(ctx context.Context, session Session, id string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", append(sessionAttrs(session), "token_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "token delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token revoked")
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}
	err = wrapNotFound(s.tokens.DeleteToken(ctx, id), "Token not found")
	return
}
