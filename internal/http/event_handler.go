package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/grillo/internal/application"
)

type eventService interface {
	List(ctx context.Context, session application.Session) ([]application.Event, error)
	Get(ctx context.Context, session application.Session, id int64) (application.Event, error)
	Create(ctx context.Context, session application.Session, input application.EventInput) (application.Event, error)
	Update(ctx context.Context, session application.Session, id int64, input application.EventInput) (application.Event, error)
	Delete(ctx context.Context, session application.Session, id int64) error
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	events, err := h.service.List(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := int64Param(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	event, err := h.service.Get(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.Create(r.Context(), sessionFrom(r.Context()), req.toInput())
	if err != nil {
		h.log(r.Context(), "Create").WarnContext(r.Context(), "event creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := int64Param(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req eventRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, err := h.service.Update(r.Context(), sessionFrom(r.Context()), id, req.toInput())
	if err != nil {
		h.log(r.Context(), "Update", "event_id", id).WarnContext(r.Context(), "event update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := int64Param(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	if err := h.service.Delete(r.Context(), sessionFrom(r.Context()), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type eventRequest struct {
	StartTime   *unixTime `json:"startTime"`
	EndTime     *unixTime `json:"endTime"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Start:       r.StartTime.value(),
		End:         r.EndTime.ptr(),
		Title:       r.Title,
		Description: r.Description,
	}
}

type eventDTO struct {
	ID          int64   `json:"id"`
	StartTime   int64   `json:"startTime"`
	EndTime     *int64  `json:"endTime"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func toEventDTO(event application.Event) eventDTO {
	return eventDTO{
		ID:          event.ID,
		StartTime:   event.Start.Unix(),
		EndTime:     unixOrNil(event.End),
		Title:       event.Title,
		Description: event.Description,
	}
}
