// Package authapi implements the AuthEndpoint port against the identity
// server's JSON refresh and logout endpoints.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthEndpoint = (*Client)(nil)

// maxResponseBytes bounds how much of a refresh response is read.
const maxResponseBytes = 1 << 20

// Client calls the refresh and logout endpoints.
type Client struct {
	http       *http.Client
	refreshURL string
	logoutURL  string
}

// NewClient creates a Client using a dedicated http.Client with the given timeout.
func NewClient(refreshURL, logoutURL string, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, refreshURL, logoutURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, refreshURL, logoutURL string) *Client {
	return &Client{
		http:       httpClient,
		refreshURL: refreshURL,
		logoutURL:  logoutURL,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Refresh posts {"refreshToken": ...} to the refresh endpoint. A non-2xx status
// yields driven.ErrRefreshRejected; a 2xx body without an access token yields
// driven.ErrMalformedRefreshResponse.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (driven.RefreshedTokens, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return driven.RefreshedTokens{}, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		return driven.RefreshedTokens{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return driven.RefreshedTokens{}, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return driven.RefreshedTokens{}, fmt.Errorf("%w: status %d", driven.ErrRefreshRejected, resp.StatusCode)
	}

	var payload refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return driven.RefreshedTokens{}, fmt.Errorf("%w: %v", driven.ErrMalformedRefreshResponse, err)
	}
	if payload.AccessToken == "" {
		return driven.RefreshedTokens{}, fmt.Errorf("%w: missing accessToken", driven.ErrMalformedRefreshResponse)
	}

	return driven.RefreshedTokens{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}, nil
}

// Logout posts an empty body to the logout endpoint, forwarding the access
// token as a bearer credential when one is given. The response is not inspected.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.logoutURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken}).SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return resp.Body.Close()
}
