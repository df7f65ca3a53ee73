package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/grillo/internal/application"
)

// SessionCookieName is the cookie carrying browser sessions.
const SessionCookieName = "session"

type authenticator interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.Session, error)
}

// Authenticate resolves the request's session from the session cookie or
// the bearer token. Requests without valid credentials continue anonymously;
// RequireTier rejects them where needed.
func Authenticate(auth authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := application.AuthenticateParams{Bearer: bearerToken(r)}
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				params.Cookie = cookie.Value
			}
			if params.Cookie == "" && params.Bearer == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := auth.Authenticate(r.Context(), params)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
			case errors.Is(err, application.ErrUnauthenticated):
				next.ServeHTTP(w, r)
			default:
				responder.handleServiceError(r.Context(), w, err)
			}
		})
	}
}

// RequireTier rejects requests whose session does not reach tier.
func RequireTier(tier application.Tier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, _ := SessionFromContext(r.Context())
			if err := application.Authorize(session, tier); err != nil {
				responder.handleServiceError(r.Context(), w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Hijack is needed by the bell websocket upgrade.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	if s.status == 0 {
		s.status = http.StatusSwitchingProtocols
	}
	return hijacker.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLogger attaches a logger carrying a request id to the context.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", uuid.NewString(),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w}
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}
