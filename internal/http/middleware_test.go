package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/grillo/internal/application"
)

type authenticatorStub struct {
	params  application.AuthenticateParams
	session application.Session
	err     error
	calls   int
}

func (s *authenticatorStub) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.Session, error) {
	s.calls++
	s.params = params
	return s.session, s.err
}

func sessionProbe(seen *application.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("anonymous requests skip authentication", func(t *testing.T) {
		auth := &authenticatorStub{}
		var seen application.Session
		rec := httptest.NewRecorder()
		Authenticate(auth, discardLogger())(sessionProbe(&seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if auth.calls != 0 || seen != nil || rec.Code != http.StatusOK {
			t.Fatalf("expected an anonymous pass through, got calls=%d session=%v", auth.calls, seen)
		}
	})

	t.Run("cookie and bearer are forwarded", func(t *testing.T) {
		auth := &authenticatorStub{session: memberSession("u1")}
		var seen application.Session
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "c-u1"})
		req.Header.Set("Authorization", "Bearer  kiosk:secret ")
		Authenticate(auth, discardLogger())(sessionProbe(&seen)).ServeHTTP(httptest.NewRecorder(), req)

		if auth.params.Cookie != "c-u1" || auth.params.Bearer != "kiosk:secret" {
			t.Fatalf("unexpected params %+v", auth.params)
		}
		if seen == nil || seen.UserID() != "u1" {
			t.Fatalf("expected the session in context, got %v", seen)
		}
	})

	t.Run("invalid credentials continue anonymously", func(t *testing.T) {
		auth := &authenticatorStub{err: application.ErrUnauthenticated}
		var seen application.Session
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		Authenticate(auth, discardLogger())(sessionProbe(&seen)).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || seen != nil {
			t.Fatalf("expected an anonymous request, got %d %v", rec.Code, seen)
		}
	})

	t.Run("store failures are reported", func(t *testing.T) {
		auth := &authenticatorStub{err: errors.New("database is locked")}
		var seen application.Session
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "c-u1"})
		rec := httptest.NewRecorder()
		Authenticate(auth, discardLogger())(sessionProbe(&seen)).ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Basic abc":       "",
		"Bearer":          "",
		"bearer id:pw":    "id:pw",
		"BEARER  id:pw  ": "id:pw",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := bearerToken(req); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Errorf("expected a request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	out := buf.String()
	for _, want := range []string{`"request_id"`, `"path":"/ping"`, `"status":418`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}
