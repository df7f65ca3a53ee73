package application

// Session is the authenticated identity behind a request. It is either a
// UserSession or an APISession; the unexported method keeps the set closed.
type Session interface {
	IsAdmin() bool
	IsReadOnly() bool
	IsBlocked() bool
	IsAPI() bool
	IsUser() bool
	// UserID returns the backing user id, or "" for API sessions.
	UserID() string
	session()
}

// UserSession is a browser session backed by a directory user.
type UserSession struct {
	User   User
	Cookie string
}

func (s UserSession) IsAdmin() bool    { return s.User.Admin }
func (s UserSession) IsReadOnly() bool { return false }
func (s UserSession) IsBlocked() bool  { return s.User.Locked }
func (s UserSession) IsAPI() bool      { return false }
func (s UserSession) IsUser() bool     { return true }
func (s UserSession) UserID() string   { return s.User.ID }
func (UserSession) session()           {}

// APISession is a machine session backed by an API token.
type APISession struct {
	Token APIToken
}

func (s APISession) IsAdmin() bool    { return s.Token.Admin }
func (s APISession) IsReadOnly() bool { return s.Token.ReadOnly }
func (s APISession) IsBlocked() bool  { return false }
func (s APISession) IsAPI() bool      { return true }
func (s APISession) IsUser() bool     { return false }
func (s APISession) UserID() string   { return "" }
func (APISession) session()           {}

// Tier is the minimum privilege a route requires.
type Tier int

const (
	// TierReadOnly accepts any valid, unblocked session.
	TierReadOnly Tier = iota
	// TierReadWrite additionally rejects read-only tokens.
	TierReadWrite
	// TierAdmin additionally requires admin rights.
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierReadOnly:
		return "RO"
	case TierReadWrite:
		return "RW"
	case TierAdmin:
		return "admin"
	}
	return "unknown"
}

// Authorize checks a session against a tier. The checks run in order:
// missing session, blocked account, read-only credential, admin rights.
func Authorize(session Session, tier Tier) error {
	if session == nil {
		return ErrUnauthenticated
	}
	if session.IsBlocked() {
		return ErrBlocked
	}
	if tier >= TierReadWrite && session.IsReadOnly() {
		return ErrUnauthorized
	}
	if tier >= TierAdmin && !session.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// actingUser resolves which user an audit or booking operation targets.
// Humans act for themselves unless they are admins; read-write tokens act
// for whichever user they name, as kiosks do.
func actingUser(session Session, requested string) (string, error) {
	if err := Authorize(session, TierReadWrite); err != nil {
		return "", err
	}
	if requested == "" {
		requested = session.UserID()
	}
	if requested == "" {
		return "", newValidationError("user", "user is required")
	}
	if session.IsUser() && !session.IsAdmin() && requested != session.UserID() {
		return "", ErrUnauthorized
	}
	return requested, nil
}

// canManage reports whether the session may modify a record owned by ownerID.
func canManage(session Session, ownerID string) bool {
	if session == nil {
		return false
	}
	if session.IsAdmin() {
		return true
	}
	return session.IsUser() && session.UserID() == ownerID
}
