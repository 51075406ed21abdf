package application

import (
	"github.com/mitchellh/mapstructure"

	"github.com/ericfisherdev/authsession/internal/domain/model"
	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// tokenClaims holds the claims read from an access token. Weak typing lets a
// numeric profile_id or a string exp decode.
type tokenClaims struct {
	Name              string
	PreferredUsername string
	Subject           string
	ProfileID         string
	ExpiresAt         int64
}

// readClaims decodes token through decoder into tokenClaims. Each claim is
// decoded on its own; a claim with an unusable type is left empty without
// discarding the others. It reports false only when the token cannot be
// decoded.
func readClaims(decoder driven.ClaimsDecoder, token string) (tokenClaims, bool) {
	var out tokenClaims

	raw, ok := decoder.Decode(token)
	if !ok {
		return out, false
	}

	fields := map[string]any{
		"name":               &out.Name,
		"preferred_username": &out.PreferredUsername,
		"sub":                &out.Subject,
		"profile_id":         &out.ProfileID,
		"exp":                &out.ExpiresAt,
	}
	for claim, target := range fields {
		value, present := raw[claim]
		if !present || value == nil {
			continue
		}
		if err := mapstructure.WeakDecode(value, target); err != nil {
			resetClaim(target)
		}
	}
	return out, true
}

// resetClaim clears a target left partially written by a failed decode.
func resetClaim(target any) {
	switch t := target.(type) {
	case *string:
		*t = ""
	case *int64:
		*t = 0
	}
}

// identity builds the display identity from the decoded claims.
func (c tokenClaims) identity() model.Identity {
	id := model.Identity{DisplayName: model.UnknownDisplayName, ProfileID: c.ProfileID}
	for _, name := range []string{c.Name, c.PreferredUsername, c.Subject} {
		if name != "" {
			id.DisplayName = name
			break
		}
	}
	return id
}

// DeriveIdentity derives the user identity from an access token. The display
// name is the first non-empty of name, preferred_username and sub, falling
// back to "User". Any decoding failure yields the "User" placeholder.
func DeriveIdentity(decoder driven.ClaimsDecoder, accessToken string) model.Identity {
	claims, ok := readClaims(decoder, accessToken)
	if !ok {
		return model.UnknownIdentity()
	}
	return claims.identity()
}
