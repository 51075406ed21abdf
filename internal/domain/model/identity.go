package model

import (
	"strings"
	"unicode"
)

// UnknownDisplayName is shown when no usable name can be read from the access token.
const UnknownDisplayName = "User"

// Identity is the user identity derived from the access token claims.
type Identity struct {
	DisplayName string `json:"displayName"`
	ProfileID   string `json:"profileId,omitempty"` // Empty when the token carries no profile.
}

// UnknownIdentity returns the placeholder identity used when claims cannot be decoded.
func UnknownIdentity() Identity {
	return Identity{DisplayName: UnknownDisplayName}
}

// Initial returns the upper-cased first letter of the display name, or "U"
// when the name is blank.
func (i Identity) Initial() string {
	for _, r := range strings.TrimSpace(i.DisplayName) {
		return string(unicode.ToUpper(r))
	}
	return "U"
}
