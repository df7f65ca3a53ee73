package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/grillo/internal/application"
)

type settingsService interface {
	Get(ctx context.Context, session application.Session) (application.Settings, error)
	SetDefaultLocation(ctx context.Context, session application.Session, id *string) (application.Settings, error)
}

type ConfigHandler struct {
	service   settingsService
	responder responder
	logger    *slog.Logger
}

func NewConfigHandler(service settingsService, logger *slog.Logger) *ConfigHandler {
	base := defaultLogger(logger)
	return &ConfigHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	settings, err := h.service.Get(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSettingsDTO(settings))
}

func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req configRequest
	if err := decodeBody(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	settings, err := h.service.SetDefaultLocation(r.Context(), sessionFrom(r.Context()), req.DefaultLocation)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "ConfigHandler", "Update").WarnContext(r.Context(), "settings update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSettingsDTO(settings))
}

type configRequest struct {
	DefaultLocation *string `json:"defaultLocation"`
}

type serviceLinkDTO struct {
	Link     string `json:"link"`
	Icon     string `json:"icon"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type settingsDTO struct {
	DefaultLocation *string          `json:"defaultLocation"`
	ServicesLinks   []serviceLinkDTO `json:"servicesLinks"`
}

func toSettingsDTO(settings application.Settings) settingsDTO {
	links := make([]serviceLinkDTO, 0, len(settings.ServicesLinks))
	for _, link := range settings.ServicesLinks {
		links = append(links, serviceLinkDTO(link))
	}
	return settingsDTO{DefaultLocation: settings.DefaultLocation, ServicesLinks: links}
}
