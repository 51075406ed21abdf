package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// errRefreshSuperseded reports a refresh whose result was discarded because the
// session was logged out or replaced while it ran.
var errRefreshSuperseded = errors.New("refresh superseded by a session change")

// DefaultRefreshTimeout bounds a refresh call when no timeout is configured.
const DefaultRefreshTimeout = 10 * time.Second

// RequestOptions describes an outbound request for AuthenticatedClient.Request.
type RequestOptions struct {
	Method string      // Defaults to GET.
	Header http.Header // Merged into the request; Authorization is replaced when a token is cached.
	Body   []byte
}

// AuthenticatedClient sends requests with the cached bearer token and, on a
// 401, refreshes the token pair once and retries the original request once.
// It reads the TokenStore at send time and again at retry time, and writes it
// only after a successful refresh.
type AuthenticatedClient struct {
	store          *TokenStore
	endpoint       driven.AuthEndpoint
	http           *http.Client
	refreshTimeout time.Duration
	logger         *slog.Logger
	refreshes      singleflight.Group
}

// NewAuthenticatedClient creates an AuthenticatedClient. A nil httpClient uses
// http.DefaultClient, a non-positive refreshTimeout uses DefaultRefreshTimeout
// and a nil logger uses slog.Default().
func NewAuthenticatedClient(store *TokenStore, endpoint driven.AuthEndpoint, httpClient *http.Client, refreshTimeout time.Duration, logger *slog.Logger) *AuthenticatedClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if refreshTimeout <= 0 {
		refreshTimeout = DefaultRefreshTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthenticatedClient{
		store:          store,
		endpoint:       endpoint,
		http:           httpClient,
		refreshTimeout: refreshTimeout,
		logger:         logger,
	}
}

// Request builds a request for target from opts and sends it with Do.
func (c *AuthenticatedClient) Request(ctx context.Context, target string, opts RequestOptions) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return c.Do(req)
}

// Do sends req following the refresh-then-retry protocol:
//   - a non-401 response is returned as-is;
//   - a 401 with no cached refresh token is returned unchanged;
//   - a 401 whose refresh fails is returned unchanged, with the store untouched;
//   - otherwise the request is retried once and that response is returned,
//     whatever its status.
//
// Only transport errors are returned as errors. req's body is consumed and
// closed; its headers are left untouched.
func (c *AuthenticatedClient) Do(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if err := bufferBody(req); err != nil {
		return nil, err
	}

	resp, sentAccess, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	refresh := c.store.RefreshToken()
	if refresh == "" {
		return resp, nil
	}

	if err := bufferBody401(resp); err != nil {
		return nil, err
	}
	if !c.refresh(req.Context(), sentAccess, refresh) {
		return resp, nil
	}

	retry, _, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return retry, nil
}

// RoundTripper exposes the refresh-then-retry protocol as an http.RoundTripper.
func (c *AuthenticatedClient) RoundTripper() http.RoundTripper {
	return roundTripperFunc(c.Do)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// send clones req, attaches the currently cached access token and sends it.
// It returns the token that was attached.
func (c *AuthenticatedClient) send(req *http.Request) (*http.Response, string, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, "", fmt.Errorf("rewind request body: %w", err)
		}
		out.Body = body
	}

	var access string
	if tok, err := c.store.Token(); err == nil {
		access = tok.AccessToken
		tok.SetAuthHeader(out)
	}

	resp, err := c.http.Do(out)
	if err != nil {
		return nil, access, err
	}
	return resp, access, nil
}

// refresh exchanges refreshToken for a new pair and writes it to the store.
// Concurrent callers holding the same refresh token share one refresh call;
// only the call that performs the refresh writes the store, and only while the
// store still holds refreshToken, so a logout or a new login made during the
// refresh is never overwritten. When the cached access token no longer matches
// sentAccess another caller has already refreshed, and the endpoint is not
// called again. The refresh runs detached from the caller's cancellation and
// is bounded by refreshTimeout.
func (c *AuthenticatedClient) refresh(ctx context.Context, sentAccess, refreshToken string) bool {
	ch := c.refreshes.DoChan(refreshToken, func() (any, error) {
		current, cachedRefresh := c.store.Tokens()
		if current != "" && current != sentAccess {
			return nil, nil
		}
		if cachedRefresh != refreshToken {
			return nil, errRefreshSuperseded
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()

		tokens, err := c.endpoint.Refresh(rctx, refreshToken)
		if err != nil {
			return nil, err
		}

		next := tokens.RefreshToken
		if next == "" {
			next = refreshToken
		}
		if !c.store.CompareAndSetTokens(refreshToken, tokens.AccessToken, next) {
			return nil, errRefreshSuperseded
		}
		return nil, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("token refresh failed", "error", res.Err)
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}

// bufferBody makes req's body replayable so the request can be retried.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	_ = req.Body.Close()

	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

// bufferBody401 reads the 401 body into memory and closes the connection so the
// response can still be returned intact after a failed refresh.
func bufferBody401(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read 401 response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return nil
}
