package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ErrEmptyAccessToken is returned when a credential is offered without an access token.
var ErrEmptyAccessToken = errors.New("credential: access token is required")

// Credential is the token pair held for a logged-in user. A Credential value
// only exists with a non-empty AccessToken; logged-out state is a nil *Credential.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"` // Empty when the server issued none.
	ExpiresAt    int64  `json:"expiresAt,omitempty"`    // Epoch seconds; 0 when unknown.
}

// Validate checks the credential invariant. It returns ErrEmptyAccessToken
// when the access token is missing.
func (c Credential) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.AccessToken, validation.Required),
	)
	if err != nil {
		return ErrEmptyAccessToken
	}
	return nil
}

// HasRefreshToken reports whether a refresh token is available.
func (c Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// Expiry returns the expiry as a time.Time, or the zero time when unknown.
func (c Credential) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// IsExpired reports whether the access token has expired at now.
// A credential without a known expiry never expires.
func (c Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return !now.Before(c.Expiry())
}

// SameTokens reports whether c carries exactly the given token pair.
func (c Credential) SameTokens(accessToken, refreshToken string) bool {
	return c.AccessToken == accessToken && c.RefreshToken == refreshToken
}
