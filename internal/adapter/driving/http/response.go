package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/authsession/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Time    string `json:"time"`
}

// SessionResponse is the JSON representation of the session. It never carries tokens.
type SessionResponse struct {
	Status          string            `json:"status"`
	LoggedIn        bool              `json:"logged_in"`
	Identity        *IdentityResponse `json:"identity"`
	HasRefreshToken bool              `json:"has_refresh_token"`
	ExpiresAt       string            `json:"expires_at,omitempty"`
	Expired         bool              `json:"expired"`
}

// IdentityResponse is the JSON representation of the derived user identity.
type IdentityResponse struct {
	DisplayName string `json:"display_name"`
	ProfileID   string `json:"profile_id,omitempty"`
	Initial     string `json:"initial"`
}

// SetIdentityRequest is the JSON body for the identity override endpoint.
type SetIdentityRequest struct {
	DisplayName string `json:"display_name"`
	ProfileID   string `json:"profile_id"`
}

// toSessionResponse converts a session snapshot to its JSON representation.
func toSessionResponse(s model.Session, now time.Time) SessionResponse {
	resp := SessionResponse{
		Status:   string(s.Status()),
		LoggedIn: s.LoggedIn(),
	}
	if s.Identity != nil {
		resp.Identity = &IdentityResponse{
			DisplayName: s.Identity.DisplayName,
			ProfileID:   s.Identity.ProfileID,
			Initial:     s.Identity.Initial(),
		}
	}
	if s.Credential != nil {
		resp.HasRefreshToken = s.Credential.HasRefreshToken()
		resp.Expired = s.Credential.IsExpired(now)
		if exp := s.Credential.Expiry(); !exp.IsZero() {
			resp.ExpiresAt = exp.UTC().Format(time.RFC3339)
		}
	}
	return resp
}
