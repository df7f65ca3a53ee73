package http

import (
	"context"
	"log/slog"

	"github.com/example/grillo/internal/application"
	"github.com/example/grillo/internal/logging"
)

type contextKey string

const sessionContextKey contextKey = "session"

// ContextWithSession returns a derived context containing the authenticated session.
func ContextWithSession(ctx context.Context, session application.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the authenticated session from context if available.
func SessionFromContext(ctx context.Context) (application.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(application.Session)
	return session, ok && session != nil
}

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func sessionFrom(ctx context.Context) application.Session {
	session, _ := SessionFromContext(ctx)
	return session
}

func sessionLogAttrs(session application.Session) []any {
	switch s := session.(type) {
	case application.UserSession:
		return []any{"session_kind", "user", "principal_id", s.User.ID}
	case application.APISession:
		return []any{"session_kind", "api", "token_id", s.Token.ID}
	default:
		return []any{"session_kind", "none"}
	}
}
