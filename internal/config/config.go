// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// StoreKind selects the slot store backing the persisted session.
type StoreKind string

const (
	StoreSQLite StoreKind = "sqlite"
	StoreFile   StoreKind = "file"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	PublicURL  string // Base URL the browser uses to reach this process.
	APIBaseURL string

	// Identity server endpoints, already resolved against APIBaseURL.
	LoginURL   string
	RefreshURL string
	LogoutURL  string

	Store     StoreKind
	DBPath    string
	StoreFile string // Empty selects the file store's default path.
	SecretKey string

	RefreshTimeout time.Duration
	RequestTimeout time.Duration
}

// HasSecretKey returns true when a slot encryption secret is configured.
// Without one the sqlite store cannot be used and the session is kept in memory.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != ""
}

// CallbackURL returns the public address of the login callback.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/auth/callback"
}

// Validate checks field formats and ranges.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ListenAddr, validation.Required),
		validation.Field(&c.PublicURL, validation.Required, is.RequestURL),
		validation.Field(&c.APIBaseURL, validation.Required, is.RequestURL),
		validation.Field(&c.LoginURL, validation.Required, is.RequestURL),
		validation.Field(&c.RefreshURL, validation.Required, is.RequestURL),
		validation.Field(&c.LogoutURL, validation.Required, is.RequestURL),
		validation.Field(&c.Store, validation.Required, validation.In(StoreSQLite, StoreFile)),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.RefreshTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: AUTHSESSION_LISTEN_ADDR (127.0.0.1:8080),
// AUTHSESSION_PUBLIC_URL (http://<listen addr>), AUTHSESSION_API_BASE_URL
// (http://127.0.0.1:5000), AUTHSESSION_LOGIN_URL (/api/auth/login-redirect),
// AUTHSESSION_REFRESH_URL (/api/auth/refresh), AUTHSESSION_LOGOUT_URL
// (/api/auth/logout), AUTHSESSION_STORE (sqlite), AUTHSESSION_DB_PATH
// (authsession.db), AUTHSESSION_STORE_FILE (~/.authsession/session.json),
// AUTHSESSION_REFRESH_TIMEOUT (10s), AUTHSESSION_REQUEST_TIMEOUT (30s).
// Relative endpoint URLs are resolved against the API base URL.
func Load() (*Config, error) {
	listenAddr := envOr("AUTHSESSION_LISTEN_ADDR", "127.0.0.1:8080")

	refreshTimeout, err := durationEnv("AUTHSESSION_REFRESH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := durationEnv("AUTHSESSION_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	apiBase := envOr("AUTHSESSION_API_BASE_URL", "http://127.0.0.1:5000")
	endpoints := map[string]string{
		"AUTHSESSION_LOGIN_URL":   "/api/auth/login-redirect",
		"AUTHSESSION_REFRESH_URL": "/api/auth/refresh",
		"AUTHSESSION_LOGOUT_URL":  "/api/auth/logout",
	}
	for key, def := range endpoints {
		resolved, err := resolveURL(apiBase, envOr(key, def))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		endpoints[key] = resolved
	}

	cfg := &Config{
		ListenAddr:     listenAddr,
		PublicURL:      envOr("AUTHSESSION_PUBLIC_URL", "http://"+listenAddr),
		APIBaseURL:     apiBase,
		LoginURL:       endpoints["AUTHSESSION_LOGIN_URL"],
		RefreshURL:     endpoints["AUTHSESSION_REFRESH_URL"],
		LogoutURL:      endpoints["AUTHSESSION_LOGOUT_URL"],
		Store:          StoreKind(strings.ToLower(envOr("AUTHSESSION_STORE", string(StoreSQLite)))),
		DBPath:         envOr("AUTHSESSION_DB_PATH", "authsession.db"),
		StoreFile:      os.Getenv("AUTHSESSION_STORE_FILE"),
		SecretKey:      os.Getenv("AUTHSESSION_SECRET_KEY"),
		RefreshTimeout: refreshTimeout,
		RequestTimeout: requestTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}

// resolveURL resolves ref against base; an absolute ref is returned unchanged.
func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
