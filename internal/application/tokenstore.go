package application

import (
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoAccessToken is returned by TokenStore.Token when no access token is cached.
var ErrNoAccessToken = errors.New("no access token cached")

// Compile-time interface satisfaction check.
var _ oauth2.TokenSource = (*TokenStore)(nil)

// TokenStore holds the current access/refresh token pair for the HTTP layer.
// It is a cache kept in step with SessionState by the Bridge, not the source
// of truth. An empty string means the slot is absent.
type TokenStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
	// rotatedFrom is the refresh token exchanged for the current pair when it
	// was written by CompareAndSetTokens, and "" after SetTokenCache.
	rotatedFrom string
	bus         *ChangeBus[struct{}]
}

// NewTokenStore creates an empty TokenStore.
func NewTokenStore() *TokenStore {
	return &TokenStore{bus: NewChangeBus[struct{}]()}
}

// SetTokenCache overwrites both slots, then notifies every current listener
// exactly once. Listeners run after the store lock is released.
func (s *TokenStore) SetTokenCache(accessToken, refreshToken string) {
	s.mu.Lock()
	s.access = accessToken
	s.refresh = refreshToken
	s.rotatedFrom = ""
	s.mu.Unlock()

	s.bus.Publish(struct{}{})
}

// CompareAndSetTokens writes the pair only when the cached refresh token still
// equals exchangedRefresh, and reports whether it did. A logout or a new login
// that replaced the pair meanwhile makes the write a no-op. Listeners are
// notified only after a write.
func (s *TokenStore) CompareAndSetTokens(exchangedRefresh, accessToken, refreshToken string) bool {
	s.mu.Lock()
	if exchangedRefresh == "" || s.refresh != exchangedRefresh {
		s.mu.Unlock()
		return false
	}
	s.access = accessToken
	s.refresh = refreshToken
	s.rotatedFrom = exchangedRefresh
	s.mu.Unlock()

	s.bus.Publish(struct{}{})
	return true
}

// AccessToken returns the cached access token, or "" when absent.
func (s *TokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the cached refresh token, or "" when absent.
func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Tokens returns both slots read under a single lock.
func (s *TokenStore) Tokens() (accessToken, refreshToken string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

// rotation returns the pair together with the refresh token it was rotated from.
func (s *TokenStore) rotation() (accessToken, refreshToken, rotatedFrom string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh, s.rotatedFrom
}

// OnChange registers fn to run after every write to the store. fn must not
// synchronously write a different token pair back into the store.
func (s *TokenStore) OnChange(fn func()) (unsubscribe func()) {
	return s.bus.Subscribe(func(struct{}) { fn() })
}

// Token implements oauth2.TokenSource over the cached pair. It never refreshes;
// refreshing is driven by AuthenticatedClient on a 401.
func (s *TokenStore) Token() (*oauth2.Token, error) {
	access, refresh := s.Tokens()
	if access == "" {
		return nil, ErrNoAccessToken
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: refresh,
	}, nil
}
