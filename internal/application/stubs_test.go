package application

import (
	"context"
	"sort"
	"sync"
	"time"
)

type auditRepoStub struct {
	mu      sync.Mutex
	audits  map[int64]Audit
	nextID  int64
	err     error
	closed  []AuditClosure
	updates []Audit
}

func newAuditRepoStub(seed ...Audit) *auditRepoStub {
	r := &auditRepoStub{audits: map[int64]Audit{}}
	for _, audit := range seed {
		r.nextID++
		if audit.ID == 0 {
			audit.ID = r.nextID
		}
		r.audits[audit.ID] = audit
	}
	return r
}

func (r *auditRepoStub) openFor(userID string) (Audit, bool) {
	for _, audit := range r.audits {
		if audit.UserID == userID && audit.End == nil {
			return audit, true
		}
	}
	return Audit{}, false
}

func (r *auditRepoStub) StartAudit(ctx context.Context, audit Audit) (Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Audit{}, r.err
	}
	if _, open := r.openFor(audit.UserID); open {
		return Audit{}, ErrConflict
	}
	r.nextID++
	audit.ID = r.nextID
	r.audits[audit.ID] = audit
	return audit, nil
}

func (r *auditRepoStub) close(closure AuditClosure) (Audit, error) {
	audit, ok := r.audits[closure.AuditID]
	if !ok || audit.End != nil {
		return Audit{}, ErrNotFound
	}
	end := closure.End
	summary := closure.Summary
	audit.End = &end
	audit.Summary = &summary
	audit.Approved = closure.Approved
	r.audits[audit.ID] = audit
	r.closed = append(r.closed, closure)
	return audit, nil
}

func (r *auditRepoStub) CloseAudit(ctx context.Context, closure AuditClosure) (Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Audit{}, r.err
	}
	return r.close(closure)
}

func (r *auditRepoStub) SwitchAudit(ctx context.Context, closure AuditClosure, next Audit) (Audit, Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Audit{}, Audit{}, r.err
	}
	closed, err := r.close(closure)
	if err != nil {
		return Audit{}, Audit{}, err
	}
	r.nextID++
	next.ID = r.nextID
	r.audits[next.ID] = next
	return closed, next, nil
}

func (r *auditRepoStub) CreateAudit(ctx context.Context, audit Audit) (Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Audit{}, r.err
	}
	r.nextID++
	audit.ID = r.nextID
	r.audits[audit.ID] = audit
	return audit, nil
}

func (r *auditRepoStub) GetAudit(ctx context.Context, id int64) (Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	audit, ok := r.audits[id]
	if !ok {
		return Audit{}, ErrNotFound
	}
	return audit, nil
}

func (r *auditRepoStub) ActiveAudit(ctx context.Context, userID string) (Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if audit, ok := r.openFor(userID); ok {
		return audit, nil
	}
	return Audit{}, ErrNotFound
}

func (r *auditRepoStub) UpdateAudit(ctx context.Context, audit Audit) (Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Audit{}, r.err
	}
	if _, ok := r.audits[audit.ID]; !ok {
		return Audit{}, ErrNotFound
	}
	r.audits[audit.ID] = audit
	r.updates = append(r.updates, audit)
	return audit, nil
}

func (r *auditRepoStub) DeleteAudit(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.audits[id]; !ok {
		return ErrNotFound
	}
	delete(r.audits, id)
	return nil
}

func (r *auditRepoStub) ListAudits(ctx context.Context, filter AuditFilter) ([]Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Audit
	for _, audit := range r.audits {
		if audit.Start.Before(filter.Range.Start) {
			continue
		}
		if audit.End != nil && audit.End.After(filter.Range.End) {
			continue
		}
		if len(filter.UserIDs) > 0 && !contains(filter.UserIDs, audit.UserID) {
			continue
		}
		out = append(out, audit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type bookingRepoStub struct {
	bookings  map[int64]Booking
	nextID    int64
	lastRange TimeRange
	lastList  BookingFilter
	consumed  []string
}

func newBookingRepoStub(seed ...Booking) *bookingRepoStub {
	r := &bookingRepoStub{bookings: map[int64]Booking{}}
	for _, booking := range seed {
		r.nextID++
		if booking.ID == 0 {
			booking.ID = r.nextID
		}
		r.bookings[booking.ID] = booking
	}
	return r
}

func (r *bookingRepoStub) CreateBooking(ctx context.Context, booking Booking) (Booking, error) {
	r.nextID++
	booking.ID = r.nextID
	r.bookings[booking.ID] = booking
	return booking, nil
}

func (r *bookingRepoStub) GetBooking(ctx context.Context, id int64) (Booking, error) {
	booking, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return booking, nil
}

func (r *bookingRepoStub) UpdateBooking(ctx context.Context, booking Booking) (Booking, error) {
	if _, ok := r.bookings[booking.ID]; !ok {
		return Booking{}, ErrNotFound
	}
	r.bookings[booking.ID] = booking
	return booking, nil
}

func (r *bookingRepoStub) DeleteBooking(ctx context.Context, id int64) error {
	if _, ok := r.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *bookingRepoStub) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	r.lastList = filter
	var out []Booking
	for _, booking := range r.bookings {
		out = append(out, booking)
	}
	return out, nil
}

func (r *bookingRepoStub) DeleteEarliestBooking(ctx context.Context, userID string, day TimeRange) (bool, error) {
	r.lastRange = day
	var (
		earliest Booking
		found    bool
	)
	for _, booking := range r.bookings {
		if booking.UserID != userID || booking.Start.Before(day.Start) || !booking.Start.Before(day.End) {
			continue
		}
		if !found || booking.Start.Before(earliest.Start) {
			earliest, found = booking, true
		}
	}
	if !found {
		return false, nil
	}
	delete(r.bookings, earliest.ID)
	r.consumed = append(r.consumed, userID)
	return true, nil
}

type locationRepoStub struct {
	locations map[string]Location
	deleted   []string
}

func newLocationRepoStub(ids ...string) *locationRepoStub {
	r := &locationRepoStub{locations: map[string]Location{}}
	for _, id := range ids {
		r.locations[id] = Location{ID: id, Name: "Room " + id}
	}
	return r
}

func (r *locationRepoStub) CreateLocation(ctx context.Context, location Location) (Location, error) {
	if _, ok := r.locations[location.ID]; ok {
		return Location{}, ErrConflict
	}
	r.locations[location.ID] = location
	return location, nil
}

func (r *locationRepoStub) GetLocation(ctx context.Context, id string) (Location, error) {
	location, ok := r.locations[id]
	if !ok {
		return Location{}, ErrNotFound
	}
	return location, nil
}

func (r *locationRepoStub) UpdateLocation(ctx context.Context, location Location) (Location, error) {
	if _, ok := r.locations[location.ID]; !ok {
		return Location{}, ErrNotFound
	}
	location.Default = false
	r.locations[location.ID] = location
	return location, nil
}

func (r *locationRepoStub) DeleteLocation(ctx context.Context, id string) error {
	if _, ok := r.locations[id]; !ok {
		return ErrNotFound
	}
	delete(r.locations, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *locationRepoStub) ListLocations(ctx context.Context) ([]Location, error) {
	out := make([]Location, 0, len(r.locations))
	for _, location := range r.locations {
		out = append(out, location)
	}
	return out, nil
}

type settingsRepoStub struct {
	values map[string]string
}

func newSettingsRepoStub(pairs ...string) *settingsRepoStub {
	r := &settingsRepoStub{values: map[string]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.values[pairs[i]] = pairs[i+1]
	}
	return r
}

func (r *settingsRepoStub) GetSetting(ctx context.Context, key string) (string, error) {
	value, ok := r.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (r *settingsRepoStub) PutSetting(ctx context.Context, key, value string) error {
	r.values[key] = value
	return nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(unix int64) *fixedClock {
	return &fixedClock{now: time.Unix(unix, 0)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(unix, 0)
}

func member(id string) UserSession {
	return UserSession{User: User{ID: id}, Cookie: "cookie-" + id}
}

func adminUser(id string) UserSession {
	return UserSession{User: User{ID: id, Admin: true}, Cookie: "cookie-" + id}
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func strPtr(value string) *string {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

func unixPtr(unix int64) *time.Time {
	t := time.Unix(unix, 0)
	return &t
}
