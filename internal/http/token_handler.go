package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/grillo/internal/application"
)

type tokenService interface {
	Create(ctx context.Context, params application.CreateTokenParams) (application.IssuedToken, error)
	List(ctx context.Context, session application.Session) ([]application.APIToken, error)
	Get(ctx context.Context, session application.Session, id string) (application.APIToken, error)
	Delete(ctx context.Context, session application.Session, id string) error
}

type TokenHandler struct {
	service   tokenService
	responder responder
	logger    *slog.Logger
}

func NewTokenHandler(service tokenService, logger *slog.Logger) *TokenHandler {
	base := defaultLogger(logger)
	return &TokenHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TokenHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TokenHandler", operation, attrs...)
}

func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tokens, err := h.service.List(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]tokenDTO, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, toTokenDTO(token))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := stringParam(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	token, err := h.service.Get(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTokenDTO(token))
}

// Create returns the secret once; it cannot be read back later.
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "read_only", req.ReadOnly, "admin", req.Admin)
	issued, err := h.service.Create(r.Context(), application.CreateTokenParams{
		Session:     sessionFrom(r.Context()),
		ReadOnly:    req.ReadOnly,
		Admin:       req.Admin,
		Description: req.Description,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "token creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "token issued", "token_id", issued.Token)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, issuedTokenDTO{
		Token:      issued.Token,
		Password:   issued.Password,
		FullString: issued.FullString,
	})
}

func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := stringParam(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	if err := h.service.Delete(r.Context(), sessionFrom(r.Context()), id); err != nil {
		h.log(r.Context(), "Delete", "token_id", id).WarnContext(r.Context(), "token delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type tokenRequest struct {
	ReadOnly    bool   `json:"readOnly"`
	Admin       bool   `json:"admin"`
	Description string `json:"description"`
}

type tokenDTO struct {
	ID          string `json:"id"`
	ReadOnly    bool   `json:"readOnly"`
	Admin       bool   `json:"admin"`
	Description string `json:"description"`
}

type issuedTokenDTO struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	FullString string `json:"fullString"`
}

func toTokenDTO(token application.APIToken) tokenDTO {
	return tokenDTO{ID: token.ID, ReadOnly: token.ReadOnly, Admin: token.Admin, Description: token.Description}
}
