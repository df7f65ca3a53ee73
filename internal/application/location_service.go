package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultLocationAlias is accepted in place of the configured default location id.
	DefaultLocationAlias = "default"
	// SettingDefaultLocation is the settings key holding the default location id.
	SettingDefaultLocation = "defaultLocation"
	// DefaultRingTimeout bounds how long a ring waits for an acknowledgment.
	DefaultRingTimeout = 10 * time.Second
)

var locationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// PeopleLister lists users whose active location matches.
type PeopleLister interface {
	UsersInLocation(ctx context.Context, locationID string) ([]User, error)
}

// LocationService manages locations, their occupants and their bell.
type LocationService struct {
	locations   LocationRepository
	settings    SettingsRepository
	people      PeopleLister
	bell        Bell
	ringTimeout time.Duration
	logger      *slog.Logger
}

// NewLocationService wires dependencies for the location service.
func NewLocationService(locations LocationRepository, settings SettingsRepository, people PeopleLister, bell Bell, ringTimeout time.Duration) *LocationService {
	return NewLocationServiceWithLogger(locations, settings, people, bell, ringTimeout, nil)
}

// NewLocationServiceWithLogger wires dependencies for the location service with a custom logger.
func NewLocationServiceWithLogger(locations LocationRepository, settings SettingsRepository, people PeopleLister, bell Bell, ringTimeout time.Duration, logger *slog.Logger) *LocationService {
	if ringTimeout <= 0 {
		ringTimeout = DefaultRingTimeout
	}
	return &LocationService{
		locations:   locations,
		settings:    settings,
		people:      people,
		bell:        bell,
		ringTimeout: ringTimeout,
		logger:      defaultLogger(logger),
	}
}

func (s *LocationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LocationService", operation, attrs...)
}

func (s *LocationService) ready() error {
	if s == nil {
		return fmt.Errorf("LocationService is nil")
	}
	if s.locations == nil {
		return fmt.Errorf("location repository not configured")
	}
	return nil
}

// List returns every location sorted by id, flagging the default one.
func (s *LocationService) List(ctx context.Context, session Session) ([]Location, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return nil, err
	}

	locations, err := s.locations.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	defaultID, err := defaultLocationID(ctx, s.settings)
	if err != nil {
		return nil, err
	}

	out := make([]Location, len(locations))
	copy(out, locations)
	for i := range out {
		out[i].Default = out[i].ID == defaultID
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a location. The id "default" resolves to the configured default.
func (s *LocationService) Get(ctx context.Context, session Session, id string) (Location, error) {
	if err := s.ready(); err != nil {
		return Location{}, err
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return Location{}, err
	}
	return s.resolveAlias(ctx, id)
}

// Create adds a location for administrators.
func (s *LocationService) Create(ctx context.Context, session Session, id, name string) (location Location, err error) {
	if err = s.ready(); err != nil {
		return
	}

	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	logger := s.loggerWith(ctx, "Create", append(sessionAttrs(session), "location_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "location create failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "location created")
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}

	vErr := &ValidationError{}
	switch {
	case id == "":
		vErr.add("id", "id is required")
	case strings.EqualFold(id, DefaultLocationAlias):
		vErr.add("id", "id cannot be \"default\"")
	case !locationIDPattern.MatchString(id):
		vErr.add("id", "id may only contain letters, digits and dashes")
	}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, getErr := s.locations.GetLocation(ctx, id); getErr == nil {
		err = failure(ErrAlreadyExists, "Location already exists")
		return
	} else if !errors.Is(getErr, ErrNotFound) {
		err = getErr
		return
	}

	location, err = s.locations.CreateLocation(ctx, Location{ID: id, Name: name})
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists) {
		err = failure(ErrAlreadyExists, "Location already exists")
	}
	return
}

// Update renames a location for administrators.
func (s *LocationService) Update(ctx context.Context, session Session, id, name string) (location Location, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update", append(sessionAttrs(session), "location_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "location update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "location updated")
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}

	name = strings.TrimSpace(name)
	if name == "" {
		err = newValidationError("name", "name is required")
		return
	}

	var existing Location
	existing, err = s.resolveAlias(ctx, id)
	if err != nil {
		return
	}
	existing.Name = name

	location, err = s.locations.UpdateLocation(ctx, existing)
	if err != nil {
		return
	}
	location.Default = existing.Default
	return
}

// Delete removes a location for administrators. The default location stays.
func (s *LocationService) Delete(ctx context.Context, session Session, id string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", append(sessionAttrs(session), "location_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "location delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "location deleted")
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}

	var existing Location
	existing, err = s.resolveAlias(ctx, id)
	if err != nil {
		return
	}
	if existing.Default {
		err = newValidationError("id", "The default location cannot be deleted")
		return
	}

	err = s.locations.DeleteLocation(ctx, existing.ID)
	if errors.Is(err, ErrConflict) {
		err = newValidationError("id", "Location is still referenced")
	}
	return
}

// People lists the users currently present at a location.
func (s *LocationService) People(ctx context.Context, session Session, id string) ([]User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return nil, err
	}

	location, err := s.resolveAlias(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.people == nil {
		return []User{}, nil
	}
	return s.people.UsersInLocation(ctx, location.ID)
}

// Ring pushes a ring to the listeners of a location and waits for one of
// them to acknowledge it.
func (s *LocationService) Ring(ctx context.Context, session Session, id string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Ring", append(sessionAttrs(session), "location_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "ring failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "ring acknowledged")
	}()

	if err = Authorize(session, TierReadWrite); err != nil {
		return
	}

	var location Location
	location, err = s.resolveAlias(ctx, id)
	if err != nil {
		return
	}
	if s.bell == nil {
		err = failure(ErrUnavailable, "No bell is configured")
		return
	}

	ringCtx, cancel := context.WithTimeout(ctx, s.ringTimeout)
	defer cancel()
	if ringErr := s.bell.Ring(ringCtx, location.ID); ringErr != nil {
		logger.DebugContext(ctx, "bell did not acknowledge", "cause", ringErr)
		err = failure(ErrUnavailable, "No response from the bell")
	}
	return
}

// Exists reports whether a location id is known. Used by listeners before
// they subscribe.
func (s *LocationService) Exists(ctx context.Context, id string) (Location, error) {
	if err := s.ready(); err != nil {
		return Location{}, err
	}
	return s.resolveAlias(ctx, id)
}

func (s *LocationService) resolveAlias(ctx context.Context, id string) (Location, error) {
	id = strings.TrimSpace(id)
	if id == DefaultLocationAlias {
		defaultID, err := defaultLocationID(ctx, s.settings)
		if err != nil {
			return Location{}, err
		}
		if defaultID == "" {
			return Location{}, failure(ErrNotFound, "Location not found")
		}
		id = defaultID
	}

	location, err := lookupLocation(ctx, s.locations, id)
	if err != nil {
		return Location{}, err
	}
	defaultID, err := defaultLocationID(ctx, s.settings)
	if err != nil {
		return Location{}, err
	}
	location.Default = location.ID == defaultID
	return location, nil
}

// defaultLocationID returns the configured default location id, or "".
func defaultLocationID(ctx context.Context, settings SettingsRepository) (string, error) {
	if settings == nil {
		return "", nil
	}
	value, err := settings.GetSetting(ctx, SettingDefaultLocation)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// resolveLocation returns the named location, or the default one when id is empty.
func resolveLocation(ctx context.Context, locations LocationRepository, settings SettingsRepository, id string) (Location, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == DefaultLocationAlias {
		defaultID, err := defaultLocationID(ctx, settings)
		if err != nil {
			return Location{}, err
		}
		if defaultID == "" {
			return Location{}, newValidationError("location", "location is required")
		}
		id = defaultID
	}
	return lookupLocation(ctx, locations, id)
}

func lookupLocation(ctx context.Context, locations LocationRepository, id string) (Location, error) {
	if locations == nil {
		return Location{}, fmt.Errorf("location repository not configured")
	}
	location, err := locations.GetLocation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Location{}, failure(ErrNotFound, "Location not found")
		}
		return Location{}, err
	}
	return location, nil
}
