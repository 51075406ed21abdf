package web

import (
	"net/url"
	"time"

	vm "github.com/ericfisherdev/authsession/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/authsession/internal/domain/model"
)

// toSessionViewModel converts a logged-in session snapshot to its view model.
func toSessionViewModel(s model.Session, now time.Time, csrf string) vm.SessionViewModel {
	view := vm.SessionViewModel{CSRFToken: csrf}

	identity := model.UnknownIdentity()
	if s.Identity != nil {
		identity = *s.Identity
	}
	view.DisplayName = sanitizeText(identity.DisplayName)
	view.Initial = sanitizeText(identity.Initial())
	view.ProfileID = sanitizeText(identity.ProfileID)

	if s.Credential != nil {
		view.CanRefresh = s.Credential.HasRefreshToken()
		view.Expired = s.Credential.IsExpired(now)
		if exp := s.Credential.Expiry(); !exp.IsZero() {
			view.ExpiresAt = exp.UTC().Format(time.RFC1123)
		}
	}
	return view
}

// toLoginViewModel builds the login page view, passing profileID through to
// the login start route when present.
func toLoginViewModel(profileID string) vm.LoginViewModel {
	start := "/login/start"
	if profileID != "" {
		start += "?" + url.Values{"profileId": {profileID}}.Encode()
	}
	return vm.LoginViewModel{StartPath: start}
}
