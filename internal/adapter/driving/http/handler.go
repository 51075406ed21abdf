// Package httphandler is the driving adapter serving the JSON API: health,
// session inspection and the authenticated pass-through to the upstream API.
package httphandler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/domain/model"
	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// maxUpstreamBody bounds request bodies forwarded to the upstream API.
const maxUpstreamBody = 1 << 20

// forwardedRequestHeaders are copied from the incoming request to the upstream call.
var forwardedRequestHeaders = []string{"Accept", "Accept-Language", "Content-Type", "If-None-Match"}

// forwardedResponseHeaders are copied from the upstream response back to the caller.
var forwardedResponseHeaders = []string{"Cache-Control", "Content-Type", "ETag", "Last-Modified", "WWW-Authenticate"}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	session  *application.SessionState
	client   *application.AuthenticatedClient
	endpoint driven.AuthEndpoint
	apiBase  *url.URL
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. apiBaseURL is
// the upstream API root that pass-through paths are resolved against.
func NewHandler(
	session *application.SessionState,
	client *application.AuthenticatedClient,
	endpoint driven.AuthEndpoint,
	apiBaseURL string,
	logger *slog.Logger,
) (*Handler, error) {
	base, err := url.Parse(strings.TrimRight(apiBaseURL, "/") + "/")
	if err != nil {
		return nil, err
	}
	return &Handler{
		session:  session,
		client:   client,
		endpoint: endpoint,
		apiBase:  base,
		logger:   logger,
	}, nil
}

// RegisterAPIRoutes registers the JSON API routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.HandleFunc("PUT /api/v1/session/identity", h.SetIdentity)
	mux.HandleFunc("DELETE /api/v1/session", h.DeleteSession)
	mux.HandleFunc("/api/v1/upstream/{path...}", h.Upstream)
}

// NewServeMux creates an http.Handler with the API routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// Health returns service liveness and the session status.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Session: string(h.session.Status()),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSession describes the current session. Tokens are never included.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Snapshot(), time.Now()))
}

// SetIdentity overrides the display identity. An empty display_name restores
// the identity derived from the access token.
func (h *Handler) SetIdentity(w http.ResponseWriter, r *http.Request) {
	var req SetIdentityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpstreamBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !h.session.LoggedIn() {
		writeError(w, http.StatusConflict, "not logged in")
		return
	}

	if strings.TrimSpace(req.DisplayName) == "" {
		h.session.SetIdentity(nil)
	} else {
		h.session.SetIdentity(&model.Identity{
			DisplayName: strings.TrimSpace(req.DisplayName),
			ProfileID:   strings.TrimSpace(req.ProfileID),
		})
	}

	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Snapshot(), time.Now()))
}

// DeleteSession signs out: the identity server is notified best-effort and
// the local session is cleared.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	application.SignOut(r.Context(), h.session, h.endpoint, h.logger)
	w.WriteHeader(http.StatusNoContent)
}

// Upstream forwards the request to the upstream API with the session's bearer
// token, refreshing once on a 401. The upstream status and body are returned
// as received; a transport failure yields 502.
func (h *Handler) Upstream(w http.ResponseWriter, r *http.Request) {
	ref, err := url.Parse(strings.TrimLeft(r.PathValue("path"), "/"))
	if err != nil || ref.IsAbs() || ref.Host != "" {
		writeError(w, http.StatusBadRequest, "invalid upstream path")
		return
	}
	target := h.apiBase.ResolveReference(ref)
	target.RawQuery = r.URL.RawQuery

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpstreamBody))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
	}

	header := make(http.Header)
	for _, key := range forwardedRequestHeaders {
		if v := r.Header.Get(key); v != "" {
			header.Set(key, v)
		}
	}

	resp, err := h.client.Request(r.Context(), target.String(), application.RequestOptions{
		Method: r.Method,
		Header: header,
		Body:   body,
	})
	if err != nil {
		h.logger.Error("upstream request failed", "path", target.Path, "error", err)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}
	defer resp.Body.Close()

	for _, key := range forwardedResponseHeaders {
		if v := resp.Header.Get(key); v != "" {
			w.Header().Set(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("failed to copy upstream response", "path", target.Path, "error", err)
	}
}
