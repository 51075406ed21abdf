// Package web implements the browser-facing login, callback and sign-out
// pages using templ components.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/authsession/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/authsession/internal/adapter/driving/web/templates/pages"
	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// fragmentMarker is added by the callback forwarder page once the fragment has
// been moved into the query.
const fragmentMarker = "fragment"

// Handler is the web driving adapter that serves HTML via templ components.
type Handler struct {
	session     *application.SessionState
	endpoint    driven.AuthEndpoint
	loginURL    string
	callbackURL string
	now         func() time.Time
	logger      *slog.Logger
}

// NewHandler creates a Handler. loginURL is the identity provider's login
// redirect endpoint; callbackURL is this process's public callback address.
func NewHandler(
	session *application.SessionState,
	endpoint driven.AuthEndpoint,
	loginURL string,
	callbackURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:     session,
		endpoint:    endpoint,
		loginURL:    loginURL,
		callbackURL: callbackURL,
		now:         time.Now,
		logger:      logger,
	}
}

// Dashboard renders the signed-in landing page, or redirects to /login.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snapshot := h.session.Snapshot()
	if !snapshot.LoggedIn() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	view := toSessionViewModel(snapshot, h.now(), csrfToken(w, r))
	h.render(w, r, http.StatusOK, templates.Layout("Session", pages.Dashboard(view)))
}

// Login renders the sign-in page. A signed-in user is sent to the dashboard.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.session.LoggedIn() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	view := toLoginViewModel(r.URL.Query().Get("profileId"))
	h.render(w, r, http.StatusOK, templates.Layout("Sign in", pages.Login(view)))
}

// LoginStart redirects to the identity provider with returnUrl set to the
// callback and profileId passed through from the query.
func (h *Handler) LoginStart(w http.ResponseWriter, r *http.Request) {
	target, err := application.LoginURL(h.loginURL, h.callbackURL, r.URL.Query().Get("profileId"))
	if err != nil {
		h.logger.Error("failed to build login URL", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback accepts tokens from the identity provider as query or form values.
// With a token the session is created and the browser sent to /. Without one,
// a GET that has not yet been through the forwarder page gets that page so
// fragment parameters can be read; otherwise the browser is sent to /login.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	cred, ok := application.ParseCallback(r.Form, h.now())
	if !ok {
		if r.Method == http.MethodGet && !r.URL.Query().Has(fragmentMarker) {
			h.render(w, r, http.StatusOK, templates.Layout("Signing in", pages.CallbackForwarder()))
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := h.session.LoginWithTokens(r.Context(), cred); err != nil {
		h.logger.Warn("rejected callback credential", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout signs out after checking the CSRF token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	application.SignOut(r.Context(), h.session, h.endpoint, h.logger)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Cache-Control", "no-store")
	templ.Handler(c, templ.WithStatus(status), templ.WithErrorHandler(func(_ *http.Request, err error) http.Handler {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	})).ServeHTTP(w, r)
}
