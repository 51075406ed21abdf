package model

// SessionStatus represents the state of the session state machine.
type SessionStatus string

const (
	SessionLoggedOut SessionStatus = "logged_out"
	SessionLoggedIn  SessionStatus = "logged_in"
)

// Session is a point-in-time copy of the session aggregate. Identity is
// non-nil exactly when Credential is non-nil.
type Session struct {
	Credential *Credential
	Identity   *Identity
}

// LoggedIn reports whether the session holds a credential.
func (s Session) LoggedIn() bool {
	return s.Credential != nil
}

// Status returns the state machine status for the snapshot.
func (s Session) Status() SessionStatus {
	if s.LoggedIn() {
		return SessionLoggedIn
	}
	return SessionLoggedOut
}
