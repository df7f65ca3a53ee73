package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/grillo/internal/application"
)

type bookingService interface {
	Create(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	Edit(ctx context.Context, params application.EditBookingParams) (application.Booking, error)
	Delete(ctx context.Context, session application.Session, id int64) error
	Get(ctx context.Context, session application.Session, id int64) (application.Booking, error)
	List(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	zone      *time.Location
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, zone *time.Location, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	if zone == nil {
		zone = time.Local
	}
	return &BookingHandler{service: service, zone: zone, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	bookings, err := h.service.List(r.Context(), application.ListBookingsParams{
		Session:    sessionFrom(r.Context()),
		Date:       dateQuery(query, h.zone),
		UserIDs:    userQuery(query),
		LocationID: optionalQuery(query, "location"),
	})
	if err != nil {
		h.log(r.Context(), "List").WarnContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTOs(bookings))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := int64Param(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}
	booking, err := h.service.Get(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	booking, err := h.service.Create(r.Context(), application.CreateBookingParams{
		Session: sessionFrom(r.Context()),
		Input:   req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := int64Param(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req bookingRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	booking, err := h.service.Edit(r.Context(), application.EditBookingParams{
		Session:   sessionFrom(r.Context()),
		BookingID: id,
		Input:     req.toInput(),
	})
	if err != nil {
		h.log(r.Context(), "Edit", "booking_id", id).WarnContext(r.Context(), "booking edit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		h.log(r.Context(), "Delete", "booking_id", id).WarnContext(r.Context(), "booking delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type bookingRequest struct {
	User      string    `json:"user"`
	StartTime *unixTime `json:"startTime"`
	EndTime   *unixTime `json:"endTime"`
	Location  *string   `json:"location"`
}

func (r bookingRequest) toInput() application.BookingInput {
	var location *string
	if r.Location != nil {
		if trimmed := strings.TrimSpace(*r.Location); trimmed != "" {
			location = &trimmed
		}
	}
	return application.BookingInput{
		UserID:     strings.TrimSpace(r.User),
		Start:      r.StartTime.value(),
		End:        r.EndTime.ptr(),
		LocationID: location,
	}
}

type bookingDTO struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"userId"`
	StartTime int64   `json:"startTime"`
	EndTime   *int64  `json:"endTime"`
	Location  *string `json:"location"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID:        booking.ID,
		UserID:    booking.UserID,
		StartTime: booking.Start.Unix(),
		EndTime:   unixOrNil(booking.End),
		Location:  booking.Location,
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}
