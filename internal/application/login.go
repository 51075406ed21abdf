package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/ericfisherdev/authsession/internal/domain/model"
	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// Callback parameter names accepted from the identity provider redirect.
const (
	ParamAccessToken  = "access_token"
	ParamRefreshToken = "refresh_token"
	ParamExpiresIn    = "expires_in"
)

// LoginURL returns loginURL with returnUrl set to callbackURL and, when
// profileID is non-empty, profileId passed through. Existing query parameters
// on loginURL are preserved.
func LoginURL(loginURL, callbackURL, profileID string) (string, error) {
	u, err := url.Parse(loginURL)
	if err != nil {
		return "", fmt.Errorf("parse login URL: %w", err)
	}

	q := u.Query()
	q.Set("returnUrl", callbackURL)
	if profileID != "" {
		q.Set("profileId", profileID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseCallback reads the tokens delivered to the login callback. It reports
// false when no access token is present. expires_in, when a positive integer,
// is converted to an absolute expiry relative to now.
func ParseCallback(values url.Values, now time.Time) (model.Credential, bool) {
	access := values.Get(ParamAccessToken)
	if access == "" {
		return model.Credential{}, false
	}

	cred := model.Credential{
		AccessToken:  access,
		RefreshToken: values.Get(ParamRefreshToken),
	}
	if secs, err := strconv.ParseInt(values.Get(ParamExpiresIn), 10, 64); err == nil && secs > 0 {
		cred.ExpiresAt = now.Add(time.Duration(secs) * time.Second).Unix()
	}
	return cred, true
}

// SignOut tells the identity server to end the session, then clears the local
// session. The server call is best effort: its failure is logged and the local
// logout happens regardless.
func SignOut(ctx context.Context, session *SessionState, endpoint driven.AuthEndpoint, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	var access string
	if cred := session.Credential(); cred != nil {
		access = cred.AccessToken
	}

	if endpoint != nil {
		if err := endpoint.Logout(ctx, access); err != nil {
			logger.Warn("server logout failed, clearing local session anyway", "error", err)
		}
	}
	session.Logout(ctx)
}
