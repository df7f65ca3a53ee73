package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AuditService enforces the attendance session rules: at most one open audit
// per user, summaries on close and approval restricted to admins.
type AuditService struct {
	audits    AuditRepository
	locations LocationRepository
	settings  SettingsRepository
	bookings  BookingConsumer
	now       func() time.Time
	zone      *time.Location
	logger    *slog.Logger
}

// NewAuditService wires dependencies for the audit service.
func NewAuditService(audits AuditRepository, locations LocationRepository, settings SettingsRepository, bookings BookingConsumer, now func() time.Time, zone *time.Location) *AuditService {
	return NewAuditServiceWithLogger(audits, locations, settings, bookings, now, zone, nil)
}

// NewAuditServiceWithLogger wires dependencies for the audit service with a custom logger.
func NewAuditServiceWithLogger(audits AuditRepository, locations LocationRepository, settings SettingsRepository, bookings BookingConsumer, now func() time.Time, zone *time.Location, logger *slog.Logger) *AuditService {
	if now == nil {
		now = time.Now
	}
	if zone == nil {
		zone = time.Local
	}
	return &AuditService{
		audits:    audits,
		locations: locations,
		settings:  settings,
		bookings:  bookings,
		now:       now,
		zone:      zone,
		logger:    defaultLogger(logger),
	}
}

func (s *AuditService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuditService", operation, attrs...)
}

func (s *AuditService) ready() error {
	if s == nil {
		return fmt.Errorf("AuditService is nil")
	}
	if s.audits == nil {
		return fmt.Errorf("audit repository not configured")
	}
	return nil
}

// Toggle opens a session for the user when none is open and closes the open
// one otherwise.
func (s *AuditService) Toggle(ctx context.Context, params ToggleAuditParams) (result ToggleResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Toggle", append(sessionAttrs(params.Session), "user_id", params.UserID)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "audit toggle failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "audit toggled", "audit_id", result.Audit.ID, "closed", result.Closed)
	}()

	var userID string
	userID, err = actingUser(params.Session, params.UserID)
	if err != nil {
		return
	}

	at := s.resolveTime(params.Time)

	active, found, lookupErr := s.activeAudit(ctx, userID)
	if lookupErr != nil {
		err = lookupErr
		return
	}

	if !found {
		var location Location
		location, err = resolveLocation(ctx, s.locations, s.settings, params.LocationID)
		if err != nil {
			return
		}
		var opened Audit
		opened, err = s.audits.StartAudit(ctx, Audit{
			UserID:   userID,
			Start:    at,
			Location: location.ID,
			Approved: params.Session.IsAdmin(),
		})
		if err != nil {
			return
		}
		s.consumeBooking(ctx, logger, userID, at)
		result = ToggleResult{Audit: opened}
		return
	}

	summary := strings.TrimSpace(params.Summary)
	if summary == "" {
		err = newValidationError("summary", "Must provide a summary to close the session")
		return
	}
	if vErr := validateInterval(active.Start, &at); vErr.HasErrors() {
		err = vErr
		return
	}

	var closed Audit
	closed, err = s.audits.CloseAudit(ctx, AuditClosure{
		AuditID:  active.ID,
		End:      at,
		Summary:  summary,
		Approved: params.Session.IsAdmin() && active.Approved,
	})
	if err != nil {
		return
	}
	result = ToggleResult{Audit: closed, Closed: true}
	return
}

// CheckIn opens a session. An open session is closed first, which requires
// a summary for it.
func (s *AuditService) CheckIn(ctx context.Context, params CheckInParams) (result CheckInResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CheckIn", append(sessionAttrs(params.Session), "user_id", params.UserID)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "check-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "checked in", "audit_id", result.Audit.ID, "switched", result.Previous != nil)
	}()

	var userID string
	userID, err = actingUser(params.Session, params.UserID)
	if err != nil {
		return
	}

	var location Location
	location, err = resolveLocation(ctx, s.locations, s.settings, params.LocationID)
	if err != nil {
		return
	}

	start := s.resolveTime(params.Start)
	next := Audit{
		UserID:   userID,
		Start:    start,
		Location: location.ID,
		Approved: params.Session.IsAdmin() && boolOr(params.Approved, true),
	}

	active, found, lookupErr := s.activeAudit(ctx, userID)
	if lookupErr != nil {
		err = lookupErr
		return
	}

	if !found {
		result.Audit, err = s.audits.StartAudit(ctx, next)
		if err != nil {
			return
		}
		s.consumeBooking(ctx, logger, userID, start)
		return
	}

	summary := strings.TrimSpace(params.PreviousSummary)
	if summary == "" {
		err = newValidationError("previousSummary", "Must provide summary when switching location")
		return
	}
	if vErr := validateInterval(active.Start, &start); vErr.HasErrors() {
		err = vErr
		return
	}

	var closed, opened Audit
	closed, opened, err = s.audits.SwitchAudit(ctx, AuditClosure{
		AuditID:  active.ID,
		End:      start,
		Summary:  summary,
		Approved: params.Session.IsAdmin() && active.Approved,
	}, next)
	if err != nil {
		return
	}
	result = CheckInResult{Audit: opened, Previous: &closed}
	return
}

// CreateEntry records a complete interval without going through the
// open/close cycle.
func (s *AuditService) CreateEntry(ctx context.Context, params CreateAuditParams) (audit Audit, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateEntry", append(sessionAttrs(params.Session), "user_id", params.UserID)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "audit entry rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "audit entry created", "audit_id", audit.ID)
	}()

	var userID string
	userID, err = actingUser(params.Session, params.UserID)
	if err != nil {
		return
	}

	end := s.resolveTime(params.End)
	vErr := validateInterval(params.Start, &end)
	summary := strings.TrimSpace(params.Summary)
	if summary == "" {
		vErr.add("summary", "summary is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var location Location
	location, err = resolveLocation(ctx, s.locations, s.settings, params.LocationID)
	if err != nil {
		return
	}

	audit, err = s.audits.CreateAudit(ctx, Audit{
		UserID:   userID,
		Start:    truncateSecond(params.Start),
		End:      &end,
		Location: location.ID,
		Summary:  &summary,
		Approved: params.Session.IsAdmin() && boolOr(params.Approved, true),
	})
	return
}

// Logout closes the open session of a user.
func (s *AuditService) Logout(ctx context.Context, params LogoutParams) (audit Audit, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Logout", append(sessionAttrs(params.Session), "user_id", params.UserID)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "logout failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "logged out", "audit_id", audit.ID)
	}()

	var userID string
	userID, err = actingUser(params.Session, params.UserID)
	if err != nil {
		return
	}

	summary := strings.TrimSpace(params.Summary)
	if summary == "" {
		err = newValidationError("summary", "Must provide a summary to close the session")
		return
	}

	active, found, lookupErr := s.activeAudit(ctx, userID)
	if lookupErr != nil {
		err = lookupErr
		return
	}
	if !found {
		err = failure(ErrNotFound, "No open session")
		return
	}

	end := s.resolveTime(params.End)
	if vErr := validateInterval(active.Start, &end); vErr.HasErrors() {
		err = vErr
		return
	}

	approved := params.Session.IsAdmin() && active.Approved
	if params.Session.IsAdmin() && params.Approved != nil {
		approved = *params.Approved
	}

	audit, err = s.audits.CloseAudit(ctx, AuditClosure{
		AuditID:  active.ID,
		End:      end,
		Summary:  summary,
		Approved: approved,
	})
	return
}

// Edit applies a partial update. Omitted fields keep their stored values.
func (s *AuditService) Edit(ctx context.Context, params EditAuditParams) (audit Audit, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Edit", append(sessionAttrs(params.Session), "audit_id", params.AuditID)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "audit edit failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "audit edited")
	}()

	if err = Authorize(params.Session, TierReadWrite); err != nil {
		return
	}

	var existing Audit
	existing, err = s.audits.GetAudit(ctx, params.AuditID)
	if err != nil {
		err = wrapNotFound(err, "Audit not found")
		return
	}
	if err = checkAuditOwnership(params.Session, existing); err != nil {
		return
	}

	updated := existing
	if params.Start != nil {
		updated.Start = truncateSecond(*params.Start)
	}
	if params.End != nil {
		end := truncateSecond(*params.End)
		updated.End = &end
	}
	if params.Summary != nil {
		summary := strings.TrimSpace(*params.Summary)
		if summary != "" {
			updated.Summary = &summary
		}
	}
	if params.Approved != nil {
		updated.Approved = *params.Approved
	}
	if !params.Session.IsAdmin() {
		updated.Approved = false
	}

	vErr := validateInterval(updated.Start, updated.End)
	closing := existing.Open() && updated.End != nil
	if closing && (updated.Summary == nil || *updated.Summary == "") {
		vErr.add("summary", "Must provide a summary to close the session")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if params.Location != nil && strings.TrimSpace(*params.Location) != existing.Location {
		var location Location
		location, err = lookupLocation(ctx, s.locations, strings.TrimSpace(*params.Location))
		if err != nil {
			return
		}
		updated.Location = location.ID
	}

	if !closing {
		audit, err = s.audits.UpdateAudit(ctx, updated)
		return
	}

	// Closing goes through CloseAudit so the user's lab state follows.
	pending := updated
	pending.End = nil
	if _, err = s.audits.UpdateAudit(ctx, pending); err != nil {
		return
	}
	audit, err = s.audits.CloseAudit(ctx, AuditClosure{
		AuditID:  updated.ID,
		End:      *updated.End,
		Summary:  *updated.Summary,
		Approved: updated.Approved,
	})
	return
}

// Delete removes an audit. Approved audits can only be deleted by admins.
func (s *AuditService) Delete(ctx context.Context, session Session, id int64) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", append(sessionAttrs(session), "audit_id", id)...)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "audit delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "audit deleted")
	}()

	if err = Authorize(session, TierReadWrite); err != nil {
		return
	}

	var existing Audit
	existing, err = s.audits.GetAudit(ctx, id)
	if err != nil {
		err = wrapNotFound(err, "Audit not found")
		return
	}
	if err = checkAuditOwnership(session, existing); err != nil {
		return
	}

	err = s.audits.DeleteAudit(ctx, id)
	return
}

// Get returns a single audit.
func (s *AuditService) Get(ctx context.Context, session Session, id int64) (Audit, error) {
	if err := s.ready(); err != nil {
		return Audit{}, err
	}
	if err := Authorize(session, TierReadOnly); err != nil {
		return Audit{}, err
	}
	audit, err := s.audits.GetAudit(ctx, id)
	if err != nil {
		return Audit{}, wrapNotFound(err, "Audit not found")
	}
	return audit, nil
}

// List returns the audits of the ISO week containing the reference date.
func (s *AuditService) List(ctx context.Context, params ListAuditsParams) ([]Audit, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := Authorize(params.Session, TierReadOnly); err != nil {
		return nil, err
	}

	ref := s.now()
	if params.Date != nil {
		ref = *params.Date
	}

	audits, err := s.audits.ListAudits(ctx, AuditFilter{
		Range:   WeekRange(ref, s.zone),
		UserIDs: cleanIDs(params.UserIDs),
	})
	if err != nil {
		s.loggerWith(ctx, "List").ErrorContext(ctx, "failed to list audits", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return audits, nil
}

func (s *AuditService) activeAudit(ctx context.Context, userID string) (Audit, bool, error) {
	active, err := s.audits.ActiveAudit(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Audit{}, false, nil
		}
		return Audit{}, false, err
	}
	return active, true, nil
}

func (s *AuditService) resolveTime(requested *time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return truncateSecond(*requested)
	}
	return truncateSecond(s.now())
}

// consumeBooking drops the booking a check-in fulfils. Failures are only logged.
func (s *AuditService) consumeBooking(ctx context.Context, logger *slog.Logger, userID string, at time.Time) {
	if s.bookings == nil {
		return
	}
	removed, err := s.bookings.ConsumeBooking(ctx, userID, at)
	if err != nil {
		logger.WarnContext(ctx, "booking cleanup failed", "error", err)
		return
	}
	if removed {
		logger.DebugContext(ctx, "booking consumed by check-in")
	}
}

func checkAuditOwnership(session Session, audit Audit) error {
	if session.IsAdmin() {
		return nil
	}
	if !canManage(session, audit.UserID) || audit.Approved {
		return ErrUnauthorized
	}
	return nil
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cleanIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
