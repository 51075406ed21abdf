package driven

import (
	"context"
	"errors"
)

// Sentinel errors returned by AuthEndpoint implementations.
var (
	// ErrRefreshRejected indicates the refresh endpoint answered with a non-2xx status.
	ErrRefreshRejected = errors.New("refresh rejected")

	// ErrMalformedRefreshResponse indicates a 2xx refresh response without a usable access token.
	ErrMalformedRefreshResponse = errors.New("malformed refresh response")
)

// RefreshedTokens is the result of a successful refresh call. RefreshToken is
// empty when the server did not rotate the refresh token.
type RefreshedTokens struct {
	AccessToken  string
	RefreshToken string
}

// AuthEndpoint defines the driven port for the identity server's session endpoints.
type AuthEndpoint interface {
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (RefreshedTokens, error)

	// Logout notifies the server that the session ended. accessToken may be empty.
	Logout(ctx context.Context, accessToken string) error
}
