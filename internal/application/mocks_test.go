package application_test

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockSlotStore struct {
	mu      sync.Mutex
	slots   map[string]string
	getErr  error
	setErr  error
	sets    int
	deletes int
}

func newMockSlotStore() *mockSlotStore {
	return &mockSlotStore{slots: make(map[string]string)}
}

func (m *mockSlotStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.slots[key], nil
}

func (m *mockSlotStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.slots[key] = value
	return nil
}

func (m *mockSlotStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.slots, key)
	return nil
}

func (m *mockSlotStore) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.slots[key]
	return v, ok
}

type mockAuthEndpoint struct {
	refresh      func(ctx context.Context, refreshToken string) (driven.RefreshedTokens, error)
	logoutErr    error
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	lastLogout   atomic.Value // string
}

func (m *mockAuthEndpoint) Refresh(ctx context.Context, refreshToken string) (driven.RefreshedTokens, error) {
	m.refreshCalls.Add(1)
	return m.refresh(ctx, refreshToken)
}

func (m *mockAuthEndpoint) Logout(_ context.Context, accessToken string) error {
	m.logoutCalls.Add(1)
	m.lastLogout.Store(accessToken)
	return m.logoutErr
}

// makeToken builds a three-segment token whose middle segment is payload,
// base64url-encoded without padding.
func makeToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".sig"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
