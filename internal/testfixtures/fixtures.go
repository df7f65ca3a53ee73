package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/grillo/internal/application"
	"github.com/example/grillo/internal/config"
	"github.com/example/grillo/internal/persistence"
)

var (
	memberCounter   uint64
	locationCounter uint64
	auditCounter    uint64
	bookingCounter  uint64
)

// A Tuesday afternoon, so the ISO week spans the previous and next days.
var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Member fixtures -----------------------------

// MemberFixture is a lab member as the directory describes it.
type MemberFixture struct {
	ID       string
	Username string
	Name     string
	Surname  string
	Email    string
	Groups   []string
	Locked   bool
	HasKey   bool
}

type MemberOption func(*MemberFixture)

// NewMemberFixture returns a member with a unique numeric id.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := MemberFixture{
		ID:       fmt.Sprintf("%d", 1000+idx),
		Username: fmt.Sprintf("member%03d", idx),
		Name:     "Member",
		Surname:  fmt.Sprintf("%03d", idx),
		Email:    fmt.Sprintf("member%03d@example.org", idx),
		Groups:   []string{"members"},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithMemberID(id string) MemberOption {
	return func(f *MemberFixture) {
		f.ID = id
	}
}

func WithMemberName(name, surname string) MemberOption {
	return func(f *MemberFixture) {
		f.Name = name
		f.Surname = surname
	}
}

// WithMemberGroups replaces the member's groups.
func WithMemberGroups(groups ...string) MemberOption {
	return func(f *MemberFixture) {
		f.Groups = append([]string(nil), groups...)
	}
}

func WithMemberLocked() MemberOption {
	return func(f *MemberFixture) {
		f.Locked = true
	}
}

func WithMemberKey() MemberOption {
	return func(f *MemberFixture) {
		f.HasKey = true
	}
}

// Identity returns the directory view of the member.
func (f MemberFixture) Identity() application.Identity {
	return application.Identity{
		ID:       f.ID,
		Username: f.Username,
		Name:     f.Name,
		Surname:  f.Surname,
		Email:    f.Email,
		Locked:   f.Locked,
		HasKey:   f.HasKey,
		Groups:   append([]string(nil), f.Groups...),
	}
}

// RosterEntry returns the member as it appears in the YAML config file.
func (f MemberFixture) RosterEntry() config.RosterEntry {
	return config.RosterEntry{
		ID:       f.ID,
		Username: f.Username,
		Name:     f.Name,
		Surname:  f.Surname,
		Email:    f.Email,
		Locked:   f.Locked,
		HasKey:   f.HasKey,
		Groups:   append([]string(nil), f.Groups...),
	}
}

// Session returns a cookie session for the member. admin is decided by the
// caller because it depends on the configured admin group.
func (f MemberFixture) Session(admin bool) application.UserSession {
	return application.UserSession{
		User: application.User{
			ID:       f.ID,
			Username: f.Username,
			Name:     f.Name,
			Surname:  f.Surname,
			Email:    f.Email,
			Groups:   append([]string(nil), f.Groups...),
			Locked:   f.Locked,
			HasKey:   f.HasKey,
			Admin:    admin,
		},
		Cookie: "cookie-" + f.ID,
	}
}

// Roster converts members to directory identities.
func Roster(members ...MemberFixture) []application.Identity {
	out := make([]application.Identity, 0, len(members))
	for _, member := range members {
		out = append(out, member.Identity())
	}
	return out
}

// ----------------------------- Location fixtures -----------------------------

type LocationFixture struct {
	ID   string
	Name string
}

type LocationOption func(*LocationFixture)

func NewLocationFixture(opts ...LocationOption) LocationFixture {
	idx := atomic.AddUint64(&locationCounter, 1)
	fixture := LocationFixture{
		ID:   fmt.Sprintf("lab-%d", idx),
		Name: fmt.Sprintf("Lab %d", idx),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithLocationID(id string) LocationOption {
	return func(f *LocationFixture) {
		f.ID = id
	}
}

func WithLocationName(name string) LocationOption {
	return func(f *LocationFixture) {
		f.Name = name
	}
}

func (f LocationFixture) Application() application.Location {
	return application.Location{ID: f.ID, Name: f.Name}
}

func (f LocationFixture) Persistence() persistence.Location {
	return persistence.Location{ID: f.ID, Name: f.Name}
}

// ----------------------------- Audit fixtures -----------------------------

// AuditFixture is an attendance interval. End is nil for an open audit.
type AuditFixture struct {
	UserID   string
	Location string
	Start    time.Time
	End      *time.Time
	Summary  *string
	Approved bool
}

type AuditOption func(*AuditFixture)

// NewAuditFixture returns a closed one hour audit. Each fixture starts a day
// after the previous one so fixtures never overlap.
func NewAuditFixture(userID, locationID string, opts ...AuditOption) AuditFixture {
	idx := atomic.AddUint64(&auditCounter, 1)
	start := referenceTime.AddDate(0, 0, int(idx))
	end := start.Add(time.Hour)
	summary := fmt.Sprintf("work log %d", idx)
	fixture := AuditFixture{
		UserID:   userID,
		Location: locationID,
		Start:    start,
		End:      &end,
		Summary:  &summary,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAuditInterval sets start and end. A nil end leaves the audit open.
func WithAuditInterval(start time.Time, end *time.Time) AuditOption {
	return func(f *AuditFixture) {
		f.Start = start
		f.End = end
	}
}

// Open drops the end time and the summary.
func Open() AuditOption {
	return func(f *AuditFixture) {
		f.End = nil
		f.Summary = nil
	}
}

func Approved() AuditOption {
	return func(f *AuditFixture) {
		f.Approved = true
	}
}

func (f AuditFixture) Application() application.Audit {
	return application.Audit{
		UserID:   f.UserID,
		Start:    f.Start,
		End:      f.End,
		Location: f.Location,
		Summary:  f.Summary,
		Approved: f.Approved,
	}
}

func (f AuditFixture) Persistence() persistence.Audit {
	audit := persistence.Audit{
		UserID:    f.UserID,
		StartTime: f.Start.Unix(),
		Location:  f.Location,
		Summary:   f.Summary,
		Approved:  f.Approved,
	}
	if f.End != nil {
		end := f.End.Unix()
		audit.EndTime = &end
	}
	return audit
}

// ----------------------------- Booking fixtures -----------------------------

type BookingFixture struct {
	UserID   string
	Start    time.Time
	End      *time.Time
	Location *string
}

// NewBookingFixture returns an open ended booking starting on a later day
// than any earlier booking fixture.
func NewBookingFixture(userID string, location *string) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	return BookingFixture{
		UserID:   userID,
		Start:    referenceTime.AddDate(0, 0, int(idx)).Add(-time.Hour),
		Location: location,
	}
}

func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{UserID: f.UserID, Start: f.Start, End: f.End, LocationID: f.Location}
}

func (f BookingFixture) Persistence() persistence.Booking {
	booking := persistence.Booking{UserID: f.UserID, StartTime: f.Start.Unix(), Location: f.Location}
	if f.End != nil {
		end := f.End.Unix()
		booking.EndTime = &end
	}
	return booking
}
