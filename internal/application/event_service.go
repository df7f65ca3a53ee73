package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// EventService manages calendar events. Reads are open to every session,
// writes are reserved to admins.
type EventService struct {
	events EventRepository
	logger *slog.Logger
}

// NewEventService wires dependencies for the event service.
func NewEventService(events EventRepository) *EventService {
	return NewEventServiceWithLogger(events, nil)
}

// NewEventServiceWithLogger wires dependencies for the event service with a custom logger.
func NewEventServiceWithLogger(events EventRepository, logger *slog.Logger) *EventService {
	return &EventService{events: events, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

func (s *EventService) ready() error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	return nil
}

// List returns every event ordered by start time.
func (s *EventService) List(ctx context.Context, session Session) ([]Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return nil, err
	}
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, session Session, id int64) (Event, error) {
	if err := s.ready(); err != nil {
		return Event{}, err
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return Event{}, err
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, wrapNotFound(err, "Event not found")
	}
	return event, nil
}

// Create stores a new event.
func (s *EventService) Create(ctx context.Context, session Session, input EventInput) (event Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create", sessionAttrs(session)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "event create failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event created", "event_id", event.ID)
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}

	normalized := normalizeEventInput(input)
	if vErr := validateEventInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	event, err = s.events.CreateEvent(ctx, Event{
		Start:       truncateSecond(normalized.Start),
		End:         truncatedPtr(normalized.End),
		Title:       normalized.Title,
		Description: normalized.Description,
	})
	return
}

// Update replaces every field of an event.
func (s *EventService) Update(ctx context.Context, session Session, id int64, input EventInput) (event Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update", append(sessionAttrs(session), "event_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "event update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}

	if _, err = s.events.GetEvent(ctx, id); err != nil {
		err = wrapNotFound(err, "Event not found")
		return
	}

	normalized := normalizeEventInput(input)
	if vErr := validateEventInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	event, err = s.events.UpdateEvent(ctx, Event{
		ID:          id,
		Start:       truncateSecond(normalized.Start),
		End:         truncatedPtr(normalized.End),
		Title:       normalized.Title,
		Description: normalized.Description,
	})
	return
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, session Session, id int64) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", append(sessionAttrs(session), "event_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "event delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted")
	}()

	if err = Authorize(session, TierAdmin); err != nil {
		return
	}

	err = wrapNotFound(s.events.DeleteEvent(ctx, id), "Event not found")
	return
}

func normalizeEventInput(input EventInput) EventInput {
	out := input
	out.Title = strings.TrimSpace(input.Title)
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			out.Description = nil
		} else {
			out.Description = &description
		}
	}
	return out
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	vErr.merge(validateInterval(input.Start, input.End))
	return vErr
}
