// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// SessionViewModel holds presentation-ready data for the signed-in landing page.
// Text fields hold plain text with markup removed; templates escape them.
type SessionViewModel struct {
	DisplayName string
	Initial     string
	ProfileID   string
	ExpiresAt   string // Empty when the token carries no expiry.
	Expired     bool
	CanRefresh  bool
	CSRFToken   string
}

// LoginViewModel holds presentation-ready data for the login page.
type LoginViewModel struct {
	StartPath string // Local path that begins the identity provider redirect.
}
