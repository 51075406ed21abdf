package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/authsession/internal/domain/model"
)

// Bridge keeps a TokenStore in step with a SessionState. Session changes are
// copied into the store; a store write made outside the session (a refresh)
// is routed back into the session so it is persisted and identity follows.
// Writes in either direction are skipped when the pairs already match, so the
// two listeners cannot feed each other indefinitely.
type Bridge struct {
	session *SessionState
	store   *TokenStore
	logger  *slog.Logger
}

// NewBridge creates a Bridge. A nil logger uses slog.Default().
func NewBridge(session *SessionState, store *TokenStore, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		session: session,
		store:   store,
		logger:  logger,
	}
}

// Start subscribes to both sides, performs an initial session-to-store sync and
// returns a function that unsubscribes. The returned function is idempotent.
func (b *Bridge) Start() (stop func()) {
	unsubSession := b.session.OnChange(func(model.Session) { b.syncStore() })
	unsubStore := b.store.OnChange(b.syncSession)

	b.syncStore()

	return func() {
		unsubSession()
		unsubStore()
	}
}

// syncStore copies the session's current token pair into the store. The
// session is read fresh rather than taken from the notification, so a late
// notification cannot reinstate a pair the session has already dropped.
func (b *Bridge) syncStore() {
	var access, refresh string
	if cred := b.session.Credential(); cred != nil {
		access, refresh = cred.AccessToken, cred.RefreshToken
	}

	if curAccess, curRefresh := b.store.Tokens(); curAccess == access && curRefresh == refresh {
		return
	}
	b.store.SetTokenCache(access, refresh)
}

// syncSession reconciles a store write with the session. A refreshed pair is
// handed to the session while logged in; anything the session does not accept
// (a write while logged out, or a refresh of a session that has since been
// replaced) is overwritten with the session's own pair.
func (b *Bridge) syncSession() {
	access, refresh, rotatedFrom := b.store.rotation()

	cred := b.session.Credential()
	if cred != nil && cred.SameTokens(access, refresh) {
		return
	}

	if cred != nil && b.session.adoptRefreshed(context.Background(), rotatedFrom, access, refresh) {
		b.logger.Debug("reconciled refreshed tokens into session")
		return
	}

	b.logger.Debug("discarding token cache write that does not match the session")
	b.syncStore()
}
