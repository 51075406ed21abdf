package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

// Double-submit protection for the sign-out form: the page embeds the cookie
// value in a hidden field and the POST must echo it back.
const (
	csrfCookieName = "authsession_csrf"
	csrfFormField  = "csrf_token"
)

// csrfToken returns the request's CSRF cookie value, issuing a new cookie when
// none is present.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	var raw [32]byte
	_, _ = rand.Read(raw[:]) // crypto/rand.Read never returns an error.
	token := base64.RawURLEncoding.EncodeToString(raw[:])

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// validateCSRF reports whether the submitted form token equals the cookie.
func validateCSRF(r *http.Request) bool {
	c, err := r.Cookie(csrfCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	submitted := r.PostFormValue(csrfFormField)
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(c.Value)) == 1
}
