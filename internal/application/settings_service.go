package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// SettingsService exposes the global configuration shown to clients.
type SettingsService struct {
	settings  SettingsRepository
	locations LocationRepository
	links     []ServiceLink
	logger    *slog.Logger
}

// NewSettingsService wires dependencies for the settings service.
func NewSettingsService(settings SettingsRepository, locations LocationRepository, links []ServiceLink) *SettingsService {
	return NewSettingsServiceWithLogger(settings, locations, links, nil)
}

// NewSettingsServiceWithLogger wires dependencies for the settings service with a custom logger.
func NewSettingsServiceWithLogger(settings SettingsRepository, locations LocationRepository, links []ServiceLink, logger *slog.Logger) *SettingsService {
	copied := make([]ServiceLink, len(links))
	copy(copied, links)
	return &SettingsService{settings: settings, locations: locations, links: copied, logger: defaultLogger(logger)}
}

func (s *SettingsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SettingsService", operation, attrs...)
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context, session Session) (Settings, error) {
	if s == nil {
		return Settings{}, fmt.Errorf("SettingsService is nil")
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return Settings{}, err
	}
	return s.current(ctx)
}

// SetDefaultLocation points the default location at an existing location.
// A nil id leaves the setting unchanged.
func (s *SettingsService) SetDefaultLocation(ctx context.Context, session Session, id *string) (settings Settings, err error) {
	if s == nil {
		err = fmt.Errorf("SettingsService is nil")
		return
	}
	if s.settings == nil {
		err = fmt.Errorf("settings repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetDefaultLocation", sessionAttrs(session)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "settings update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "settings updated")
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}

	if id != nil {
		trimmed := strings.TrimSpace(*id)
		if trimmed == "" {
			err = newValidationError("defaultLocation", "defaultLocation cannot be empty")
			return
		}
		if _, lookupErr := lookupLocation(ctx, s.locations, trimmed); lookupErr != nil {
			if errors.Is(lookupErr, ErrNotFound) {
				err = newValidationError("defaultLocation", "Location not found")
			} else {
				err = lookupErr
			}
			return
		}
		if err = s.settings.PutSetting(ctx, SettingDefaultLocation, trimmed); err != nil {
			return
		}
	}

	settings, err = s.current(ctx)
	return
}

func (s *SettingsService) current(ctx context.Context) (Settings, error) {
	defaultID, err := defaultLocationID(ctx, s.settings)
	if err != nil {
		return Settings{}, err
	}
	links := make([]ServiceLink, len(s.links))
	copy(links, s.links)

	settings := Settings{ServicesLinks: links}
	if defaultID != "" {
		settings.DefaultLocation = &defaultID
	}
	return settings, nil
}
