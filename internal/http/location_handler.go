package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/grillo/internal/application"
)

type locationService interface {
	List(ctx context.Context, session application.Session) ([]application.Location, error)
	Get(ctx context.Context, session application.Session, id string) (application.Location, error)
	Create(ctx context.Context, session application.Session, id, name string) (application.Location, error)
	Update(ctx context.Context, session application.Session, id, name string) (application.Location, error)
	Delete(ctx context.Context, session application.Session, id string) error
	People(ctx context.Context, session application.Session, id string) ([]application.User, error)
	Ring(ctx context.Context, session application.Session, id string) error
}

// bellServer bridges a listener connection for a location.
type bellServer interface {
	Serve(w http.ResponseWriter, r *http.Request, locationID string) error
}

type LocationHandler struct {
	service   locationService
	bell      bellServer
	responder responder
	logger    *slog.Logger
}

func NewLocationHandler(service locationService, bell bellServer, logger *slog.Logger) *LocationHandler {
	base := defaultLogger(logger)
	return &LocationHandler{service: service, bell: bell, responder: newResponder(base), logger: base}
}

func (h *LocationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LocationHandler", operation, attrs...)
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	locations, err := h.service.List(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]locationDTO, 0, len(locations))
	for _, location := range locations {
		out = append(out, toLocationDTO(location))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

// Get also answers the "default" alias.
func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := stringParam(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	location, err := h.service.Get(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLocationDTO(location))
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req locationRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "location_id", strings.TrimSpace(req.ID))
	location, err := h.service.Create(r.Context(), sessionFrom(r.Context()), req.ID, req.Name)
	if err != nil {
		logger.WarnContext(r.Context(), "location creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "location created")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLocationDTO(location))
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := stringParam(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req locationRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	location, err := h.service.Update(r.Context(), sessionFrom(r.Context()), id, req.Name)
	if err != nil {
		h.log(r.Context(), "Update", "location_id", id).WarnContext(r.Context(), "location update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLocationDTO(location))
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		h.log(r.Context(), "Delete", "location_id", id).WarnContext(r.Context(), "location delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *LocationHandler) People(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := stringParam(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	users, err := h.service.People(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTOs(users))
}

// Ring blocks until a listener acknowledges or the ring times out.
func (h *LocationHandler) Ring(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := stringParam(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	logger := h.log(r.Context(), "Ring", "location_id", id)
	if err := h.service.Ring(r.Context(), sessionFrom(r.Context()), id); err != nil {
		logger.WarnContext(r.Context(), "ring failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "ring acknowledged")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Listen upgrades to a websocket that receives the rings of a location.
func (h *LocationHandler) Listen(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if h.bell == nil {
		h.responder.writeError(r.Context(), w, http.StatusServiceUnavailable, nil)
		return
	}

	id, ok := stringParam(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	location, err := h.service.Get(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Listen", "location_id", location.ID)
	// Serve has already answered the request when the upgrade fails.
	if err := h.bell.Serve(w, r, location.ID); err != nil {
		logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
	}
}

type locationRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type locationDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

func toLocationDTO(location application.Location) locationDTO {
	return locationDTO{ID: location.ID, Name: location.Name, Default: location.Default}
}
