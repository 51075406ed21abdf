// Package jwtclaims implements the ClaimsDecoder port for JWT-shaped access tokens.
package jwtclaims

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ClaimsDecoder = (*Decoder)(nil)
	_ driven.ClaimsDecoder = (*CachingDecoder)(nil)
)

// Decoder reads the payload segment of a three-part JWT without verifying
// the signature. The header and signature segments are not inspected.
type Decoder struct {
	parser *jwt.Parser
}

// NewDecoder creates a Decoder that accepts both padded and unpadded base64url payloads.
func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser(jwt.WithPaddingAllowed())}
}

// Decode returns the token's claims, or (nil, false) when the token does not
// have three segments or the payload is not a base64url-encoded JSON object.
func (d *Decoder) Decode(token string) (map[string]any, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, false
	}

	payload, err := d.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil || claims == nil {
		return nil, false
	}
	return claims, true
}

// CachingDecoder memoizes decode results for recently seen tokens. A session
// re-derives identity from the same token on every change notification, so a
// small cache avoids repeated base64 and JSON work.
type CachingDecoder struct {
	next  driven.ClaimsDecoder
	cache *lru.Cache[string, cachedClaims]
}

type cachedClaims struct {
	claims map[string]any
	ok     bool
}

// NewCachingDecoder wraps next with an LRU cache holding up to size entries.
func NewCachingDecoder(next driven.ClaimsDecoder, size int) (*CachingDecoder, error) {
	cache, err := lru.New[string, cachedClaims](size)
	if err != nil {
		return nil, err
	}
	return &CachingDecoder{next: next, cache: cache}, nil
}

// Decode returns cached claims for token, decoding and caching on a miss.
// Callers receive a deep copy so cached entries cannot be mutated.
func (c *CachingDecoder) Decode(token string) (map[string]any, bool) {
	if hit, ok := c.cache.Get(token); ok {
		return copyClaims(hit.claims), hit.ok
	}

	claims, ok := c.next.Decode(token)
	c.cache.Add(token, cachedClaims{claims: claims, ok: ok})
	return copyClaims(claims), ok
}

func copyClaims(claims map[string]any) map[string]any {
	if claims == nil {
		return nil
	}
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = copyValue(v)
	}
	return out
}

// copyValue copies the JSON container types so nested objects and arrays are
// not shared with the cache.
func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyClaims(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
