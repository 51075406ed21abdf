package driven

// ClaimsDecoder reads the claims carried inside an access token. Decoding is
// for display only; implementations do not verify signatures.
type ClaimsDecoder interface {
	// Decode returns the token's claims. It fails closed: any structural or
	// encoding problem yields (nil, false) rather than an error.
	Decode(token string) (map[string]any, bool)
}
