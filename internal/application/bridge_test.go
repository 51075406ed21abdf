package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/domain/model"
)

func TestBridge_StartSyncsExistingSession(t *testing.T) {
	session := newTestSession(nil)
	require.NoError(t, session.LoginWithTokens(context.Background(), model.Credential{AccessToken: "a", RefreshToken: "r"}))

	store := application.NewTokenStore()
	stop := application.NewBridge(session, store, discardLogger()).Start()
	defer stop()

	access, refresh := store.Tokens()
	assert.Equal(t, "a", access)
	assert.Equal(t, "r", refresh)
}

func TestBridge_CopiesSessionChangesIntoStore(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(nil)
	store := application.NewTokenStore()
	stop := application.NewBridge(session, store, discardLogger()).Start()
	defer stop()

	var writes int
	store.OnChange(func() { writes++ })

	require.NoError(t, session.LoginWithTokens(ctx, model.Credential{AccessToken: "a", RefreshToken: "r"}))
	assert.Equal(t, "a", store.AccessToken())
	assert.Equal(t, 1, writes, "one store write per session change")

	session.SetIdentity(&model.Identity{DisplayName: "X"})
	assert.Equal(t, 1, writes, "identity-only change leaves the store alone")

	session.Logout(ctx)
	access, refresh := store.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.Equal(t, 2, writes)
}

func TestBridge_ReconcilesStoreRefreshIntoSession(t *testing.T) {
	ctx := context.Background()
	slots := newMockSlotStore()
	session := newTestSession(slots)
	store := application.NewTokenStore()
	stop := application.NewBridge(session, store, discardLogger()).Start()
	defer stop()

	require.NoError(t, session.LoginWithTokens(ctx, model.Credential{AccessToken: makeToken(`{"name":"Alice"}`), RefreshToken: "r1"}))

	refreshed := makeToken(`{"name":"Alice B","exp":1800000000}`)
	store.SetTokenCache(refreshed, "r2")

	cred := session.Credential()
	require.NotNil(t, cred)
	assert.Equal(t, refreshed, cred.AccessToken)
	assert.Equal(t, "r2", cred.RefreshToken)
	assert.Equal(t, int64(1800000000), cred.ExpiresAt)
	assert.Equal(t, "Alice B", session.Identity().DisplayName)

	raw, ok := slots.value(application.SessionSlotKey)
	require.True(t, ok)
	assert.Contains(t, raw, `"refreshToken":"r2"`)

	access, refresh := store.Tokens()
	assert.Equal(t, refreshed, access)
	assert.Equal(t, "r2", refresh)
}

func TestBridge_ClearsStoreWrittenWhileLoggedOut(t *testing.T) {
	session := newTestSession(nil)
	store := application.NewTokenStore()
	stop := application.NewBridge(session, store, discardLogger()).Start()
	defer stop()

	store.SetTokenCache("stray", "r")

	assert.False(t, session.LoggedIn())
	access, refresh := store.Tokens()
	assert.Empty(t, access, "the cache never holds a token the session does not")
	assert.Empty(t, refresh)
}

func TestBridge_RejectsRotationOfReplacedSession(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(nil)
	store := application.NewTokenStore()
	stop := application.NewBridge(session, store, discardLogger()).Start()
	defer stop()

	require.NoError(t, session.LoginWithTokens(ctx, model.Credential{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, session.LoginWithTokens(ctx, model.Credential{AccessToken: "b1", RefreshToken: "rb"}))

	assert.False(t, store.CompareAndSetTokens("r1", "a2", "r2"), "the store no longer holds r1")

	cred := session.Credential()
	require.NotNil(t, cred)
	assert.Equal(t, "b1", cred.AccessToken)
	assert.Equal(t, "b1", store.AccessToken())
}

func TestBridge_AdoptsRotationOfCurrentSession(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(nil)
	store := application.NewTokenStore()
	stop := application.NewBridge(session, store, discardLogger()).Start()
	defer stop()

	require.NoError(t, session.LoginWithTokens(ctx, model.Credential{AccessToken: "a1", RefreshToken: "r1"}))
	require.True(t, store.CompareAndSetTokens("r1", "a2", "r2"))

	cred := session.Credential()
	require.NotNil(t, cred)
	assert.Equal(t, "a2", cred.AccessToken)
	assert.Equal(t, "r2", cred.RefreshToken)
}

func TestBridge_StopUnsubscribes(t *testing.T) {
	session := newTestSession(nil)
	store := application.NewTokenStore()
	stop := application.NewBridge(session, store, discardLogger()).Start()

	stop()
	stop()

	require.NoError(t, session.LoginWithTokens(context.Background(), model.Credential{AccessToken: "a"}))
	assert.Empty(t, store.AccessToken())
}
