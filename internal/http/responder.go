package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/grillo/internal/application"
)

var (
	errBadRequestBody = errors.New("Invalid request body")
	errInvalidID      = errors.New("Invalid id")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Error:  vErr.Error(),
			Issues: vErr.Issues(),
			Errors: vErr.FieldErrors,
		})
		return
	}

	status := statusFor(err)
	message := statusMessage(status)
	var detailed *application.DetailedError
	if errors.As(err, &detailed) && detailed.Message != "" {
		message = detailed.Message
	}
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, application.ErrBlocked):
		return http.StatusLocked
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrAlreadyExists), errors.Is(err, application.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Bad request"
	case http.StatusUnauthorized:
		return "Not authenticated"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusLocked:
		return "Account blocked"
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	default:
		return "Internal server error"
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Issues []string          `json:"issues,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}
