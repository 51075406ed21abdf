package web

import (
	"net/http"
)

// RegisterRoutes registers all browser-facing routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.Dashboard)
	mux.HandleFunc("GET /login", h.Login)
	mux.HandleFunc("GET /login/start", h.LoginStart)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/callback", h.Callback)
	mux.HandleFunc("POST /logout", h.Logout)
}
