package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

type tokenRepoStub struct {
	tokens    map[string]APIToken
	createErr []error
	created   []APIToken
}

func newTokenRepoStub(tokens ...APIToken) *tokenRepoStub {
	r := &tokenRepoStub{tokens: map[string]APIToken{}}
	for _, token := range tokens {
		r.tokens[token.ID] = token
	}
	return r
}

func (r *tokenRepoStub) CreateToken(ctx context.Context, token APIToken) error {
	if len(r.createErr) > 0 {
		err := r.createErr[0]
		r.createErr = r.createErr[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := r.tokens[token.ID]; ok {
		return ErrAlreadyExists
	}
	r.tokens[token.ID] = token
	r.created = append(r.created, token)
	return nil
}

func (r *tokenRepoStub) GetToken(ctx context.Context, id string) (APIToken, error) {
	token, ok := r.tokens[id]
	if !ok {
		return APIToken{}, ErrNotFound
	}
	return token, nil
}

func (r *tokenRepoStub) ListTokens(ctx context.Context) ([]APIToken, error) {
	out := make([]APIToken, 0, len(r.tokens))
	for _, token := range r.tokens {
		out = append(out, token)
	}
	return out, nil
}

func (r *tokenRepoStub) DeleteToken(ctx context.Context, id string) error {
	if _, ok := r.tokens[id]; !ok {
		return ErrNotFound
	}
	delete(r.tokens, id)
	return nil
}

type cookieRepoStub struct {
	cookies map[string]SessionCookie
	deleted []string
}

func newCookieRepoStub(cookies ...SessionCookie) *cookieRepoStub {
	r := &cookieRepoStub{cookies: map[string]SessionCookie{}}
	for _, cookie := range cookies {
		r.cookies[cookie.Value] = cookie
	}
	return r
}

func (r *cookieRepoStub) CreateCookie(ctx context.Context, cookie SessionCookie) error {
	if _, ok := r.cookies[cookie.Value]; ok {
		return ErrAlreadyExists
	}
	r.cookies[cookie.Value] = cookie
	return nil
}

func (r *cookieRepoStub) GetCookie(ctx context.Context, value string) (SessionCookie, error) {
	cookie, ok := r.cookies[value]
	if !ok {
		return SessionCookie{}, ErrNotFound
	}
	return cookie, nil
}

func (r *cookieRepoStub) DeleteCookie(ctx context.Context, value string) error {
	if _, ok := r.cookies[value]; !ok {
		return ErrNotFound
	}
	delete(r.cookies, value)
	r.deleted = append(r.deleted, value)
	return nil
}

type userLookupStub map[string]User

func (s userLookupStub) Lookup(ctx context.Context, id string) (User, error) {
	user, ok := s[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func sequence(values ...string) func() string {
	i := 0
	return func() string {
		value := values[i%len(values)]
		i++
		return value
	}
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	hash, err := HashSecret(secret, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashSecret returned error: %v", err)
	}
	return hash
}

func TestAuthService_Authenticate(t *testing.T) {
	users := userLookupStub{
		"u1":     {ID: "u1"},
		"locked": {ID: "locked", Locked: true},
	}
	cookies := newCookieRepoStub(
		SessionCookie{Value: "c-u1", UserID: "u1"},
		SessionCookie{Value: "c-gone", UserID: "ghost"},
		SessionCookie{Value: "c-locked", UserID: "locked"},
	)
	tokens := newTokenRepoStub(APIToken{ID: "kiosk", Hash: mustHash(t, "right"), ReadOnly: true})
	svc := NewAuthService(cookies, tokens, users, nil, nil)
	ctx := context.Background()

	t.Run("cookie session", func(t *testing.T) {
		session, err := svc.Authenticate(ctx, AuthenticateParams{Cookie: "c-u1"})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		userSession, ok := session.(UserSession)
		if !ok || userSession.User.ID != "u1" || userSession.IsReadOnly() || userSession.IsAPI() {
			t.Fatalf("unexpected session %#v", session)
		}
	})

	t.Run("cookie of a user gone from the directory", func(t *testing.T) {
		if _, err := svc.Authenticate(ctx, AuthenticateParams{Cookie: "c-gone"}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("locked user is authenticated but blocked", func(t *testing.T) {
		session, err := svc.Authenticate(ctx, AuthenticateParams{Cookie: "c-locked"})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !errors.Is(Authorize(session, TierReadOnly), ErrBlocked) {
			t.Fatalf("expected a blocked session")
		}
	})

	t.Run("bearer token", func(t *testing.T) {
		session, err := svc.Authenticate(ctx, AuthenticateParams{Bearer: "kiosk:right"})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		apiSession, ok := session.(APISession)
		if !ok || !apiSession.IsReadOnly() || apiSession.Token.Hash != "" {
			t.Fatalf("unexpected session %#v", session)
		}
	})

	t.Run("wrong secret for an existing id", func(t *testing.T) {
		if _, err := svc.Authenticate(ctx, AuthenticateParams{Bearer: "kiosk:wrong"}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("malformed and unknown tokens", func(t *testing.T) {
		for _, bearer := range []string{"kiosk", ":right", "kiosk:", "nobody:right"} {
			if _, err := svc.Authenticate(ctx, AuthenticateParams{Bearer: bearer}); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated for %q, got %v", bearer, err)
			}
		}
	})

	t.Run("unknown cookie falls back to the token", func(t *testing.T) {
		session, err := svc.Authenticate(ctx, AuthenticateParams{Cookie: "stale", Bearer: "kiosk:right"})
		if err != nil || !session.IsAPI() {
			t.Fatalf("expected API session, got %v, %v", session, err)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		if _, err := svc.Authenticate(ctx, AuthenticateParams{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestAuthService_IssueCookie(t *testing.T) {
	t.Run("retries on collision", func(t *testing.T) {
		cookies := newCookieRepoStub(SessionCookie{Value: "taken", UserID: "u1"})
		svc := NewAuthService(cookies, nil, userLookupStub{"u1": {ID: "u1"}}, nil, sequence("taken", "fresh"))

		value, err := svc.IssueCookie(context.Background(), "u1", "127.0.0.1 - test")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if value != "fresh" {
			t.Fatalf("expected the regenerated value, got %q", value)
		}
		if got := cookies.cookies["fresh"]; got.UserID != "u1" || got.Description == nil {
			t.Fatalf("unexpected stored cookie %+v", got)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := NewAuthService(newCookieRepoStub(), nil, userLookupStub{}, nil, nil)
		if _, err := svc.IssueCookie(context.Background(), "ghost", ""); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAuthService_RevokeCookie(t *testing.T) {
	cookies := newCookieRepoStub(SessionCookie{Value: "c-u1", UserID: "u1"})
	svc := NewAuthService(cookies, nil, nil, nil, nil)

	if err := svc.RevokeCookie(context.Background(), APISession{Token: APIToken{ID: "kiosk", Admin: true}}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected API sessions to be forbidden, got %v", err)
	}
	if err := svc.RevokeCookie(context.Background(), UserSession{User: User{ID: "u1"}, Cookie: "c-u1"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(cookies.deleted) != 1 {
		t.Fatalf("expected the cookie to be deleted")
	}
}

func TestTokenService_Create(t *testing.T) {
	counter := 0
	generate := func(n int) (string, error) {
		counter++
		// The first id collides with the seeded token.
		if counter == 1 {
			return "dup", nil
		}
		return fmt.Sprintf("v%d", counter), nil
	}
	repo := newTokenRepoStub(APIToken{ID: "dup"})
	svc := NewTokenService(repo, generate, bcrypt.MinCost)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateTokenParams{Session: member("u1"), Description: "x"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	_, err := svc.Create(ctx, CreateTokenParams{Session: adminUser("boss"), ReadOnly: true, Admin: true})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || len(vErr.FieldErrors) != 2 {
		t.Fatalf("expected description and flag errors, got %v", err)
	}

	issued, err := svc.Create(ctx, CreateTokenParams{Session: adminUser("boss"), Description: " kiosk "})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if issued.Token == "dup" || issued.FullString != issued.Token+":"+issued.Password {
		t.Fatalf("unexpected issued token %+v", issued)
	}
	stored := repo.tokens[issued.Token]
	if stored.Description != "kiosk" || VerifySecret(stored.Hash, issued.Password) != nil {
		t.Fatalf("expected the secret hash to be stored, got %+v", stored)
	}

	listed, err := svc.List(ctx, adminUser("boss"))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	for _, token := range listed {
		if token.Hash != "" {
			t.Fatalf("expected hashes to be hidden, got %+v", token)
		}
	}

	if err := svc.Delete(ctx, adminUser("boss"), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
