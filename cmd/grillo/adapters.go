package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/grillo/internal/application"
	"github.com/example/grillo/internal/persistence"
)

// translateError maps storage sentinels onto the application's.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrOpenAuditExists):
		return &application.DetailedError{Kind: application.ErrConflict, Message: "User already logged in"}
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return application.ErrConflict
	default:
		return err
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

func timePtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0)
	return &t
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.LabState, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return toLabStates(models), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.LabState, error) {
	model, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.LabState{}, translateError(err)
	}
	return toLabState(model), nil
}

func (a *userRepositoryAdapter) ListUsersInLocation(ctx context.Context, locationID string) ([]application.LabState, error) {
	models, err := a.repo.ListUsersInLocation(ctx, locationID)
	if err != nil {
		return nil, translateError(err)
	}
	return toLabStates(models), nil
}

func (a *userRepositoryAdapter) AddUserIfNotExists(ctx context.Context, id string) error {
	return translateError(a.repo.AddUserIfNotExists(ctx, id))
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteUser(ctx, id))
}

func toLabState(model persistence.User) application.LabState {
	return application.LabState{UserID: model.ID, Seconds: model.Seconds, ActiveLocation: model.ActiveLocation}
}

func toLabStates(models []persistence.User) []application.LabState {
	out := make([]application.LabState, 0, len(models))
	for _, model := range models {
		out = append(out, toLabState(model))
	}
	return out
}

type auditRepositoryAdapter struct {
	repo persistence.AuditRepository
}

func newAuditRepositoryAdapter(repo persistence.AuditRepository) *auditRepositoryAdapter {
	return &auditRepositoryAdapter{repo: repo}
}

func (a *auditRepositoryAdapter) StartAudit(ctx context.Context, audit application.Audit) (application.Audit, error) {
	stored, err := a.repo.StartAudit(ctx, toPersistenceAudit(audit))
	if err != nil {
		return application.Audit{}, translateError(err)
	}
	return toApplicationAudit(stored), nil
}

func (a *auditRepositoryAdapter) CloseAudit(ctx context.Context, closure application.AuditClosure) (application.Audit, error) {
	stored, err := a.repo.CloseAudit(ctx, toPersistenceClosure(closure))
	if err != nil {
		return application.Audit{}, translateError(err)
	}
	return toApplicationAudit(stored), nil
}

func (a *auditRepositoryAdapter) SwitchAudit(ctx context.Context, closure application.AuditClosure, next application.Audit) (application.Audit, application.Audit, error) {
	closed, opened, err := a.repo.SwitchAudit(ctx, toPersistenceClosure(closure), toPersistenceAudit(next))
	if err != nil {
		return application.Audit{}, application.Audit{}, translateError(err)
	}
	return toApplicationAudit(closed), toApplicationAudit(opened), nil
}

func (a *auditRepositoryAdapter) CreateAudit(ctx context.Context, audit application.Audit) (application.Audit, error) {
	stored, err := a.repo.CreateAudit(ctx, toPersistenceAudit(audit))
	if err != nil {
		return application.Audit{}, translateError(err)
	}
	return toApplicationAudit(stored), nil
}

func (a *auditRepositoryAdapter) GetAudit(ctx context.Context, id int64) (application.Audit, error) {
	stored, err := a.repo.GetAudit(ctx, id)
	if err != nil {
		return application.Audit{}, translateError(err)
	}
	return toApplicationAudit(stored), nil
}

func (a *auditRepositoryAdapter) ActiveAudit(ctx context.Context, userID string) (application.Audit, error) {
	stored, err := a.repo.ActiveAudit(ctx, userID)
	if err != nil {
		return application.Audit{}, translateError(err)
	}
	return toApplicationAudit(stored), nil
}

func (a *auditRepositoryAdapter) UpdateAudit(ctx context.Context, audit application.Audit) (application.Audit, error) {
	stored, err := a.repo.UpdateAudit(ctx, toPersistenceAudit(audit))
	if err != nil {
		return application.Audit{}, translateError(err)
	}
	return toApplicationAudit(stored), nil
}

func (a *auditRepositoryAdapter) DeleteAudit(ctx context.Context, id int64) error {
	return translateError(a.repo.DeleteAudit(ctx, id))
}

func (a *auditRepositoryAdapter) ListAudits(ctx context.Context, filter application.AuditFilter) ([]application.Audit, error) {
	models, err := a.repo.ListAudits(ctx, persistence.AuditFilter{
		StartsAfter: unixOrZero(filter.Range.Start),
		EndsBefore:  unixOrZero(filter.Range.End),
		UserIDs:     filter.UserIDs,
	})
	if err != nil {
		return nil, translateError(err)
	}
	audits := make([]application.Audit, 0, len(models))
	for _, model := range models {
		audits = append(audits, toApplicationAudit(model))
	}
	return audits, nil
}

func toPersistenceAudit(audit application.Audit) persistence.Audit {
	return persistence.Audit{
		ID:        audit.ID,
		UserID:    audit.UserID,
		StartTime: audit.Start.Unix(),
		EndTime:   unixPtr(audit.End),
		Location:  audit.Location,
		Summary:   audit.Summary,
		Approved:  audit.Approved,
	}
}

func toPersistenceClosure(closure application.AuditClosure) persistence.AuditClosure {
	return persistence.AuditClosure{
		AuditID:  closure.AuditID,
		EndTime:  closure.End.Unix(),
		Summary:  closure.Summary,
		Approved: closure.Approved,
	}
}

func toApplicationAudit(model persistence.Audit) application.Audit {
	return application.Audit{
		ID:       model.ID,
		UserID:   model.UserID,
		Start:    time.Unix(model.StartTime, 0),
		End:      timePtr(model.EndTime),
		Location: model.Location,
		Summary:  model.Summary,
		Approved: model.Approved,
	}
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	stored, err := a.repo.CreateBooking(ctx, toPersistenceBooking(booking))
	if err != nil {
		return application.Booking{}, translateError(err)
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id int64) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, translateError(err)
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	stored, err := a.repo.UpdateBooking(ctx, toPersistenceBooking(booking))
	if err != nil {
		return application.Booking{}, translateError(err)
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id int64) error {
	return translateError(a.repo.DeleteBooking(ctx, id))
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingFilter) ([]application.Booking, error) {
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		StartsAfter: unixOrZero(filter.Range.Start),
		EndsBefore:  unixOrZero(filter.Range.End),
		UserIDs:     filter.UserIDs,
		LocationID:  filter.LocationID,
	})
	if err != nil {
		return nil, translateError(err)
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

func (a *bookingRepositoryAdapter) DeleteEarliestBooking(ctx context.Context, userID string, day application.TimeRange) (bool, error) {
	removed, err := a.repo.DeleteEarliestBooking(ctx, userID, day.Start.Unix(), day.End.Unix())
	return removed, translateError(err)
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:        booking.ID,
		UserID:    booking.UserID,
		StartTime: booking.Start.Unix(),
		EndTime:   unixPtr(booking.End),
		Location:  booking.Location,
	}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:       model.ID,
		UserID:   model.UserID,
		Start:    time.Unix(model.StartTime, 0),
		End:      timePtr(model.EndTime),
		Location: model.Location,
	}
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	stored, err := a.repo.CreateEvent(ctx, toPersistenceEvent(event))
	if err != nil {
		return application.Event{}, translateError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id int64) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, translateError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	stored, err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event))
	if err != nil {
		return application.Event{}, translateError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id int64) error {
	return translateError(a.repo.DeleteEvent(ctx, id))
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:          event.ID,
		StartTime:   event.Start.Unix(),
		EndTime:     unixPtr(event.End),
		Title:       event.Title,
		Description: event.Description,
	}
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:          model.ID,
		Start:       time.Unix(model.StartTime, 0),
		End:         timePtr(model.EndTime),
		Title:       model.Title,
		Description: model.Description,
	}
}

type locationRepositoryAdapter struct {
	repo persistence.LocationRepository
}

func newLocationRepositoryAdapter(repo persistence.LocationRepository) *locationRepositoryAdapter {
	return &locationRepositoryAdapter{repo: repo}
}

func (a *locationRepositoryAdapter) CreateLocation(ctx context.Context, location application.Location) (application.Location, error) {
	if err := a.repo.CreateLocation(ctx, persistence.Location{ID: location.ID, Name: location.Name}); err != nil {
		return application.Location{}, translateError(err)
	}
	return a.GetLocation(ctx, location.ID)
}

func (a *locationRepositoryAdapter) GetLocation(ctx context.Context, id string) (application.Location, error) {
	stored, err := a.repo.GetLocation(ctx, id)
	if err != nil {
		return application.Location{}, translateError(err)
	}
	return application.Location{ID: stored.ID, Name: stored.Name}, nil
}

func (a *locationRepositoryAdapter) UpdateLocation(ctx context.Context, location application.Location) (application.Location, error) {
	if err := a.repo.UpdateLocation(ctx, persistence.Location{ID: location.ID, Name: location.Name}); err != nil {
		return application.Location{}, translateError(err)
	}
	return a.GetLocation(ctx, location.ID)
}

func (a *locationRepositoryAdapter) DeleteLocation(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteLocation(ctx, id))
}

func (a *locationRepositoryAdapter) ListLocations(ctx context.Context) ([]application.Location, error) {
	models, err := a.repo.ListLocations(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	locations := make([]application.Location, 0, len(models))
	for _, model := range models {
		locations = append(locations, application.Location{ID: model.ID, Name: model.Name})
	}
	return locations, nil
}

type tokenRepositoryAdapter struct {
	repo persistence.TokenRepository
}

func newTokenRepositoryAdapter(repo persistence.TokenRepository) *tokenRepositoryAdapter {
	return &tokenRepositoryAdapter{repo: repo}
}

func (a *tokenRepositoryAdapter) CreateToken(ctx context.Context, token application.APIToken) error {
	return translateError(a.repo.CreateToken(ctx, persistence.APIToken(token)))
}

func (a *tokenRepositoryAdapter) GetToken(ctx context.Context, id string) (application.APIToken, error) {
	stored, err := a.repo.GetToken(ctx, id)
	if err != nil {
		return application.APIToken{}, translateError(err)
	}
	return application.APIToken(stored), nil
}

func (a *tokenRepositoryAdapter) ListTokens(ctx context.Context) ([]application.APIToken, error) {
	models, err := a.repo.ListTokens(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	tokens := make([]application.APIToken, 0, len(models))
	for _, model := range models {
		tokens = append(tokens, application.APIToken(model))
	}
	return tokens, nil
}

func (a *tokenRepositoryAdapter) DeleteToken(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteToken(ctx, id))
}

type cookieRepositoryAdapter struct {
	repo persistence.CookieRepository
}

func newCookieRepositoryAdapter(repo persistence.CookieRepository) *cookieRepositoryAdapter {
	return &cookieRepositoryAdapter{repo: repo}
}

func (a *cookieRepositoryAdapter) CreateCookie(ctx context.Context, cookie application.SessionCookie) error {
	return translateError(a.repo.CreateCookie(ctx, persistence.SessionCookie{
		Cookie:      cookie.Value,
		UserID:      cookie.UserID,
		Description: cookie.Description,
	}))
}

func (a *cookieRepositoryAdapter) GetCookie(ctx context.Context, value string) (application.SessionCookie, error) {
	stored, err := a.repo.GetCookie(ctx, value)
	if err != nil {
		return application.SessionCookie{}, translateError(err)
	}
	return application.SessionCookie{Value: stored.Cookie, UserID: stored.UserID, Description: stored.Description}, nil
}

func (a *cookieRepositoryAdapter) DeleteCookie(ctx context.Context, value string) error {
	return translateError(a.repo.DeleteCookie(ctx, value))
}

type settingsRepositoryAdapter struct {
	repo persistence.SettingsRepository
}

func newSettingsRepositoryAdapter(repo persistence.SettingsRepository) *settingsRepositoryAdapter {
	return &settingsRepositoryAdapter{repo: repo}
}

func (a *settingsRepositoryAdapter) GetSetting(ctx context.Context, key string) (string, error) {
	value, err := a.repo.GetSetting(ctx, key)
	return value, translateError(err)
}

func (a *settingsRepositoryAdapter) PutSetting(ctx context.Context, key, value string) error {
	return translateError(a.repo.PutSetting(ctx, key, value))
}
