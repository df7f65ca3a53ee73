package persistence

// User holds the locally mutable part of a lab member. Identity attributes
// live in the directory and are merged by the application layer.
type User struct {
	ID             string  `db:"id"`
	Seconds        int64   `db:"seconds"`
	ActiveLocation *string `db:"active_location"`
}

// Audit is an attendance interval. EndTime is nil while the session is open.
// Times are unix seconds.
type Audit struct {
	ID        int64   `db:"id"`
	UserID    string  `db:"user_id"`
	StartTime int64   `db:"start_time"`
	EndTime   *int64  `db:"end_time"`
	Location  string  `db:"location"`
	Summary   *string `db:"summary"`
	Approved  bool    `db:"approved"`
}

// AuditClosure describes how an open audit is closed.
type AuditClosure struct {
	AuditID  int64
	EndTime  int64
	Summary  string
	Approved bool
}

// Booking is a reservation of a location by a user.
type Booking struct {
	ID        int64   `db:"id"`
	UserID    string  `db:"user_id"`
	StartTime int64   `db:"start_time"`
	EndTime   *int64  `db:"end_time"`
	Location  *string `db:"location"`
}

// Event is a calendar entry shown to every lab member.
type Event struct {
	ID          int64   `db:"id"`
	StartTime   int64   `db:"start_time"`
	EndTime     *int64  `db:"end_time"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
}

// Location is a physical place where audits and bookings happen.
type Location struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// APIToken is a machine credential. Hash is the bcrypt hash of the secret half.
type APIToken struct {
	ID          string `db:"id"`
	Hash        string `db:"hash"`
	ReadOnly    bool   `db:"read_only"`
	Admin       bool   `db:"admin"`
	Description string `db:"description"`
}

// SessionCookie binds an opaque browser cookie to a user.
type SessionCookie struct {
	Cookie      string  `db:"cookie"`
	UserID      string  `db:"user_id"`
	Description *string `db:"description"`
}
