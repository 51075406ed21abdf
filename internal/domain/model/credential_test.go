package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/authsession/internal/domain/model"
)

func TestCredential_Validate(t *testing.T) {
	assert.NoError(t, model.Credential{AccessToken: "abc"}.Validate())
	assert.ErrorIs(t, model.Credential{}.Validate(), model.ErrEmptyAccessToken)
	assert.ErrorIs(t, model.Credential{RefreshToken: "r"}.Validate(), model.ErrEmptyAccessToken)
}

func TestCredential_IsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.False(t, model.Credential{AccessToken: "a"}.IsExpired(now), "unknown expiry never expires")
	assert.False(t, model.Credential{AccessToken: "a", ExpiresAt: now.Unix() + 60}.IsExpired(now))
	assert.True(t, model.Credential{AccessToken: "a", ExpiresAt: now.Unix()}.IsExpired(now))
	assert.True(t, model.Credential{AccessToken: "a", ExpiresAt: now.Unix() - 1}.IsExpired(now))
}

func TestCredential_JSONOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(model.Credential{AccessToken: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"a"}`, string(data))

	data, err = json.Marshal(model.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"a","refreshToken":"r","expiresAt":42}`, string(data))
}

func TestIdentity_Initial(t *testing.T) {
	assert.Equal(t, "A", model.Identity{DisplayName: "alice"}.Initial())
	assert.Equal(t, "B", model.Identity{DisplayName: "  bob"}.Initial())
	assert.Equal(t, "U", model.Identity{}.Initial())
}

func TestSession_Status(t *testing.T) {
	assert.Equal(t, model.SessionLoggedOut, model.Session{}.Status())

	id := model.UnknownIdentity()
	s := model.Session{Credential: &model.Credential{AccessToken: "a"}, Identity: &id}
	assert.True(t, s.LoggedIn())
	assert.Equal(t, model.SessionLoggedIn, s.Status())
}
