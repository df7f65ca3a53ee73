package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/grillo/internal/application"
)

type auditService interface {
	Toggle(ctx context.Context, params application.ToggleAuditParams) (application.ToggleResult, error)
	CheckIn(ctx context.Context, params application.CheckInParams) (application.CheckInResult, error)
	CreateEntry(ctx context.Context, params application.CreateAuditParams) (application.Audit, error)
	Logout(ctx context.Context, params application.LogoutParams) (application.Audit, error)
	Edit(ctx context.Context, params application.EditAuditParams) (application.Audit, error)
	Delete(ctx context.Context, session application.Session, id int64) error
	Get(ctx context.Context, session application.Session, id int64) (application.Audit, error)
	List(ctx context.Context, params application.ListAuditsParams) ([]application.Audit, error)
}

type AuditHandler struct {
	service   auditService
	zone      *time.Location
	responder responder
	logger    *slog.Logger
}

func NewAuditHandler(service auditService, zone *time.Location, logger *slog.Logger) *AuditHandler {
	base := defaultLogger(logger)
	if zone == nil {
		zone = time.Local
	}
	return &AuditHandler{service: service, zone: zone, responder: newResponder(base), logger: base}
}

func (h *AuditHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuditHandler", operation, attrs...)
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	audits, err := h.service.List(r.Context(), application.ListAuditsParams{
		Session: sessionFrom(r.Context()),
		Date:    dateQuery(query, h.zone),
		UserIDs: userQuery(query),
	})
	if err != nil {
		h.log(r.Context(), "List").WarnContext(r.Context(), "audit list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAuditDTOs(audits))
}

func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := int64Param(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	audit, err := h.service.Get(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAuditDTO(audit))
}

// Create opens a session when login is true, otherwise it records a
// complete entry.
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createAuditRequest
	if err := decodeBody(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode audit request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session := sessionFrom(r.Context())
	logger := h.log(r.Context(), "Create", "login", req.Login)

	if req.Login {
		result, err := h.service.CheckIn(r.Context(), application.CheckInParams{
			Session:         session,
			UserID:          strings.TrimSpace(req.User),
			LocationID:      strings.TrimSpace(req.Location),
			Start:           req.StartTime.ptr(),
			Approved:        req.Approved,
			PreviousSummary: req.PreviousSummary,
		})
		if err != nil {
			logger.WarnContext(r.Context(), "check-in failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		response := checkInResponse{auditDTO: toAuditDTO(result.Audit)}
		if result.Previous != nil {
			previous := toAuditDTO(*result.Previous)
			response.Previous = &previous
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
		return
	}

	audit, err := h.service.CreateEntry(r.Context(), application.CreateAuditParams{
		Session:    session,
		UserID:     strings.TrimSpace(req.User),
		LocationID: strings.TrimSpace(req.Location),
		Start:      req.StartTime.value(),
		End:        req.EndTime.ptr(),
		Summary:    req.Summary,
		Approved:   req.Approved,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "audit entry failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAuditDTO(audit))
}

// Logout closes the open session of the caller or of the given user.
func (h *AuditHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req logoutRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	audit, err := h.service.Logout(r.Context(), application.LogoutParams{
		Session:  sessionFrom(r.Context()),
		UserID:   strings.TrimSpace(req.User),
		Summary:  req.Summary,
		End:      req.EndTime.ptr(),
		Approved: req.Approved,
	})
	if err != nil {
		h.log(r.Context(), "Logout").WarnContext(r.Context(), "logout failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAuditDTO(audit))
}

// Toggle opens a session when none is open and closes it otherwise.
func (h *AuditHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req toggleRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user := req.User
	if user == "" {
		user = req.UserID
	}
	location := req.Location
	if location == "" {
		location = req.LocationID
	}

	result, err := h.service.Toggle(r.Context(), application.ToggleAuditParams{
		Session:    sessionFrom(r.Context()),
		UserID:     strings.TrimSpace(user),
		LocationID: strings.TrimSpace(location),
		Summary:    req.Summary,
		Time:       req.Time.ptr(),
	})
	if err != nil {
		h.log(r.Context(), "Toggle").WarnContext(r.Context(), "toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toggleResponse{auditDTO: toAuditDTO(result.Audit), Closed: result.Closed})
}

func (h *AuditHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := int64Param(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	var req editAuditRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	audit, err := h.service.Edit(r.Context(), application.EditAuditParams{
		Session:  sessionFrom(r.Context()),
		AuditID:  id,
		Start:    req.StartTime.ptr(),
		End:      req.EndTime.ptr(),
		Summary:  req.Summary,
		Approved: req.Approved,
		Location: req.Location,
	})
	if err != nil {
		h.log(r.Context(), "Edit", "audit_id", id).WarnContext(r.Context(), "audit edit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAuditDTO(audit))
}

func (h *AuditHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		h.log(r.Context(), "Delete", "audit_id", id).WarnContext(r.Context(), "audit delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type createAuditRequest struct {
	Login           bool      `json:"login"`
	User            string    `json:"user"`
	Location        string    `json:"location"`
	Approved        *bool     `json:"approved"`
	Summary         string    `json:"summary"`
	PreviousSummary string    `json:"previousSummary"`
	StartTime       *unixTime `json:"startTime"`
	EndTime         *unixTime `json:"endTime"`
}

type logoutRequest struct {
	User     string    `json:"user"`
	Approved *bool     `json:"approved"`
	Summary  string    `json:"summary"`
	EndTime  *unixTime `json:"endTime"`
}

type toggleRequest struct {
	User       string    `json:"user"`
	UserID     string    `json:"userId"`
	Location   string    `json:"location"`
	LocationID string    `json:"locationId"`
	Summary    string    `json:"summary"`
	Time       *unixTime `json:"time"`
}

type editAuditRequest struct {
	Location  *string   `json:"location"`
	Approved  *bool     `json:"approved"`
	Summary   *string   `json:"summary"`
	StartTime *unixTime `json:"startTime"`
	EndTime   *unixTime `json:"endTime"`
}

type auditDTO struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"userId"`
	StartTime int64   `json:"startTime"`
	EndTime   *int64  `json:"endTime"`
	Location  string  `json:"location"`
	Summary   *string `json:"summary"`
	Approved  bool    `json:"approved"`
}

type checkInResponse struct {
	auditDTO
	Previous *auditDTO `json:"previous,omitempty"`
}

type toggleResponse struct {
	auditDTO
	Closed bool `json:"closed"`
}

func toAuditDTO(audit application.Audit) auditDTO {
	return auditDTO{
		ID:        audit.ID,
		UserID:    audit.UserID,
		StartTime: audit.Start.Unix(),
		EndTime:   unixOrNil(audit.End),
		Location:  audit.Location,
		Summary:   audit.Summary,
		Approved:  audit.Approved,
	}
}

func toAuditDTOs(audits []application.Audit) []auditDTO {
	out := make([]auditDTO, 0, len(audits))
	for _, audit := range audits {
		out = append(out, toAuditDTO(audit))
	}
	return out
}
