package application

import "time"

// Identity is a directory entry describing a lab member.
type Identity struct {
	ID       string
	Username string
	Name     string
	Surname  string
	Email    string
	Locked   bool
	HasKey   bool
	Groups   []string
}

// User merges a directory identity with the locally tracked lab state.
type User struct {
	ID             string
	Username       string
	Name           string
	Surname        string
	Email          string
	Groups         []string
	HasKey         bool
	Locked         bool
	Admin          bool
	Seconds        int64
	ActiveLocation *string
}

// DisplayName returns the user's full name, falling back to the username.
func (u User) DisplayName() string {
	switch {
	case u.Name != "" && u.Surname != "":
		return u.Name + " " + u.Surname
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	}
	return u.ID
}

// LabState is the persisted part of a user.
type LabState struct {
	UserID         string
	Seconds        int64
	ActiveLocation *string
}

// Audit is an attendance interval. End is nil while the session is open.
type Audit struct {
	ID       int64
	UserID   string
	Start    time.Time
	End      *time.Time
	Location string
	Summary  *string
	Approved bool
}

// Open reports whether the audit has not been closed yet.
func (a Audit) Open() bool {
	return a.End == nil
}

// AuditClosure describes how an open audit is closed.
type AuditClosure struct {
	AuditID  int64
	End      time.Time
	Summary  string
	Approved bool
}

// Booking reserves a location for a user.
type Booking struct {
	ID       int64
	UserID   string
	Start    time.Time
	End      *time.Time
	Location *string
}

// Event is a calendar entry visible to every member.
type Event struct {
	ID          int64
	Start       time.Time
	End         *time.Time
	Title       string
	Description *string
}

// Location is a place where audits and bookings happen. Default is derived
// from the global settings and never stored with the row.
type Location struct {
	ID      string
	Name    string
	Default bool
}

// APIToken is a machine credential. Hash never leaves the application layer.
type APIToken struct {
	ID          string
	Hash        string
	ReadOnly    bool
	Admin       bool
	Description string
}

// IssuedToken is returned once when a token is created.
type IssuedToken struct {
	Token      string
	Password   string
	FullString string
}

// SessionCookie binds a browser cookie value to a user.
type SessionCookie struct {
	Value       string
	UserID      string
	Description *string
}

// ServiceLink is a shortcut shown on the dashboard.
type ServiceLink struct {
	Link     string
	Icon     string
	Title    string
	Subtitle string
}

// Settings is the client visible global configuration.
type Settings struct {
	DefaultLocation *string
	ServicesLinks   []ServiceLink
}

// TimeRange bounds a listing. Zero values leave that side open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	Range   TimeRange
	UserIDs []string
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	Range      TimeRange
	UserIDs    []string
	LocationID *string
}

// ToggleAuditParams drives the combined check-in/check-out operation.
type ToggleAuditParams struct {
	Session    Session
	UserID     string
	LocationID string
	Summary    string
	Time       *time.Time
}

// ToggleResult reports which transition a toggle performed.
type ToggleResult struct {
	Audit  Audit
	Closed bool
}

// CheckInParams opens a session, optionally closing the previous one.
type CheckInParams struct {
	Session         Session
	UserID          string
	LocationID      string
	Start           *time.Time
	Approved        *bool
	PreviousSummary string
}

// CheckInResult holds the opened audit and the one it replaced, if any.
type CheckInResult struct {
	Audit    Audit
	Previous *Audit
}

// CreateAuditParams records a complete attendance interval.
type CreateAuditParams struct {
	Session    Session
	UserID     string
	LocationID string
	Start      time.Time
	End        *time.Time
	Summary    string
	Approved   *bool
}

// LogoutParams closes the open session of a user.
type LogoutParams struct {
	Session  Session
	UserID   string
	Summary  string
	End      *time.Time
	Approved *bool
}

// EditAuditParams carries a partial audit update. Nil fields keep their stored value.
type EditAuditParams struct {
	Session  Session
	AuditID  int64
	Start    *time.Time
	End      *time.Time
	Summary  *string
	Approved *bool
	Location *string
}

// ListAuditsParams selects the ISO week containing Date.
type ListAuditsParams struct {
	Session Session
	Date    *time.Time
	UserIDs []string
}

// BookingInput carries caller provided booking fields.
type BookingInput struct {
	UserID     string
	Start      time.Time
	End        *time.Time
	LocationID *string
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Session Session
	Input   BookingInput
}

// EditBookingParams wraps the data required to update a booking.
type EditBookingParams struct {
	Session   Session
	BookingID int64
	Input     BookingInput
}

// ListBookingsParams selects the ISO week containing Date.
type ListBookingsParams struct {
	Session    Session
	Date       *time.Time
	UserIDs    []string
	LocationID *string
}

// EventInput carries caller provided event fields.
type EventInput struct {
	Start       time.Time
	End         *time.Time
	Title       string
	Description *string
}

// CreateTokenParams describes a new API token.
type CreateTokenParams struct {
	Session     Session
	ReadOnly    bool
	Admin       bool
	Description string
}
