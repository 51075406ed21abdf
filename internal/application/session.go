package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/authsession/internal/domain/model"
	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// SessionSlotKey is the durable slot holding the JSON-encoded credential.
const SessionSlotKey = "auth.tokens.v1"

// SessionState is the session state machine. It owns the authoritative
// credential, derives identity from the access token and persists every
// credential change to the slot store. Identity is non-nil exactly when the
// session is logged in.
type SessionState struct {
	mu         sync.RWMutex
	credential *model.Credential
	identity   *model.Identity

	slots   driven.SlotStore // nil runs the session in memory only.
	decoder driven.ClaimsDecoder
	bus     *ChangeBus[model.Session]
	logger  *slog.Logger
}

// NewSessionState creates a logged-out session. slots may be nil, in which case
// nothing is persisted. A nil logger uses slog.Default().
func NewSessionState(slots driven.SlotStore, decoder driven.ClaimsDecoder, logger *slog.Logger) *SessionState {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionState{
		slots:   slots,
		decoder: decoder,
		bus:     NewChangeBus[model.Session](),
		logger:  logger,
	}
}

// LoginWithTokens transitions to LoggedIn with cred and persists it. An empty
// access token is rejected with model.ErrEmptyAccessToken and leaves the
// session unchanged. A token whose claims cannot be read still logs in, with
// the placeholder identity. When cred carries no expiry, the token's exp
// claim is used if present.
func (s *SessionState) LoginWithTokens(ctx context.Context, cred model.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	claims, ok := readClaims(s.decoder, cred.AccessToken)
	identity := model.UnknownIdentity()
	if ok {
		identity = claims.identity()
		if cred.ExpiresAt == 0 {
			cred.ExpiresAt = claims.ExpiresAt
		}
	}

	s.mu.Lock()
	s.credential = &cred
	s.identity = &identity
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session logged in", "display_name", identity.DisplayName, "expires_at", cred.ExpiresAt)
	s.bus.Publish(snapshot)
	return nil
}

// Logout clears the credential and identity and deletes the persisted slot.
// It is idempotent; listeners are notified only when the session was logged in.
func (s *SessionState) Logout(ctx context.Context) {
	s.mu.Lock()
	wasLoggedIn := s.credential != nil
	s.credential = nil
	s.identity = nil
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if !wasLoggedIn {
		return
	}
	s.logger.Info("session logged out")
	s.bus.Publish(snapshot)
}

// SetIdentity overrides the derived identity without touching the credential.
// A nil identity restores the identity derived from the current access token.
// The call is ignored while logged out. The override lasts until the access
// token changes.
func (s *SessionState) SetIdentity(identity *model.Identity) {
	s.mu.Lock()
	if s.credential == nil {
		s.mu.Unlock()
		return
	}
	var next model.Identity
	if identity != nil {
		next = *identity
	} else {
		next = DeriveIdentity(s.decoder, s.credential.AccessToken)
	}
	s.identity = &next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(snapshot)
}

// Restore reads the persisted slot once and adopts the stored credential
// without re-persisting it. An absent, unreadable or corrupt slot is treated
// as no session and reported as false.
func (s *SessionState) Restore(ctx context.Context) bool {
	if s.slots == nil {
		return false
	}

	raw, err := s.slots.Get(ctx, SessionSlotKey)
	if err != nil {
		s.logger.Warn("failed to read persisted session", "error", err)
		return false
	}
	if raw == "" {
		return false
	}

	var cred model.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		s.logger.Warn("ignoring corrupt persisted session", "error", err)
		return false
	}
	if err := cred.Validate(); err != nil {
		s.logger.Warn("ignoring corrupt persisted session", "error", err)
		return false
	}

	identity := DeriveIdentity(s.decoder, cred.AccessToken)

	s.mu.Lock()
	s.credential = &cred
	s.identity = &identity
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session restored", "display_name", identity.DisplayName, "expires_at", cred.ExpiresAt)
	s.bus.Publish(snapshot)
	return true
}

// adoptRefreshed replaces the token pair after a refresh performed outside the
// session, re-deriving identity and expiry and persisting the result. When
// rotatedFrom is set the pair is adopted only if the session still holds that
// refresh token. It reports whether the session now holds the pair; it never
// adopts while logged out or an empty access token.
func (s *SessionState) adoptRefreshed(ctx context.Context, rotatedFrom, accessToken, refreshToken string) bool {
	if accessToken == "" {
		return false
	}

	cred := model.Credential{AccessToken: accessToken, RefreshToken: refreshToken}
	identity := model.UnknownIdentity()
	if claims, ok := readClaims(s.decoder, accessToken); ok {
		identity = claims.identity()
		cred.ExpiresAt = claims.ExpiresAt
	}

	s.mu.Lock()
	switch {
	case s.credential == nil:
		s.mu.Unlock()
		return false
	case s.credential.SameTokens(accessToken, refreshToken):
		s.mu.Unlock()
		return true
	case rotatedFrom != "" && s.credential.RefreshToken != rotatedFrom:
		s.mu.Unlock()
		return false
	}
	s.credential = &cred
	s.identity = &identity
	s.persistLocked(ctx)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("session adopted refreshed tokens", "expires_at", cred.ExpiresAt)
	s.bus.Publish(snapshot)
	return true
}

// LoggedIn reports whether a credential is held.
func (s *SessionState) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential != nil
}

// Status returns the state machine status.
func (s *SessionState) Status() model.SessionStatus {
	return s.Snapshot().Status()
}

// Credential returns a copy of the current credential, or nil when logged out.
func (s *SessionState) Credential() *model.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return nil
	}
	c := *s.credential
	return &c
}

// Identity returns a copy of the current identity, or nil when logged out.
func (s *SessionState) Identity() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	i := *s.identity
	return &i
}

// Snapshot returns a consistent copy of the credential and identity.
func (s *SessionState) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// OnChange registers fn to receive a snapshot after every session change.
func (s *SessionState) OnChange(fn func(model.Session)) (unsubscribe func()) {
	return s.bus.Subscribe(fn)
}

func (s *SessionState) snapshotLocked() model.Session {
	var snap model.Session
	if s.credential != nil {
		c := *s.credential
		snap.Credential = &c
	}
	if s.identity != nil {
		i := *s.identity
		snap.Identity = &i
	}
	return snap
}

// persistLocked writes the current credential to the slot store, or deletes
// the slot when logged out. Failures are logged and the session continues in
// memory. Caller must hold s.mu.
func (s *SessionState) persistLocked(ctx context.Context) {
	if s.slots == nil {
		return
	}

	if s.credential == nil {
		if err := s.slots.Delete(ctx, SessionSlotKey); err != nil {
			s.logger.Warn("failed to delete persisted session", "error", err)
		}
		return
	}

	data, err := json.Marshal(s.credential)
	if err != nil {
		s.logger.Warn("failed to encode session for persistence", "error", err)
		return
	}
	if err := s.slots.Set(ctx, SessionSlotKey, string(data)); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}
