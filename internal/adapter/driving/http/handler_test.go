package httphandler_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/authsession/internal/adapter/driven/jwtclaims"
	httphandler "github.com/ericfisherdev/authsession/internal/adapter/driving/http"
	"github.com/ericfisherdev/authsession/internal/application"
	"github.com/ericfisherdev/authsession/internal/domain/model"
	"github.com/ericfisherdev/authsession/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockAuthEndpoint struct {
	refreshed   driven.RefreshedTokens
	refreshErr  error
	logoutErr   error
	logoutCalls atomic.Int32
}

func (m *mockAuthEndpoint) Refresh(_ context.Context, _ string) (driven.RefreshedTokens, error) {
	return m.refreshed, m.refreshErr
}

func (m *mockAuthEndpoint) Logout(_ context.Context, _ string) error {
	m.logoutCalls.Add(1)
	return m.logoutErr
}

type testEnv struct {
	mux      http.Handler
	session  *application.SessionState
	store    *application.TokenStore
	endpoint *mockAuthEndpoint
}

func makeToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func setupEnv(t *testing.T, upstreamURL string) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := application.NewSessionState(nil, jwtclaims.NewDecoder(), logger)
	store := application.NewTokenStore()
	t.Cleanup(application.NewBridge(session, store, logger).Start())

	endpoint := &mockAuthEndpoint{}
	client := application.NewAuthenticatedClient(store, endpoint, nil, time.Second, logger)

	h, err := httphandler.NewHandler(session, client, endpoint, upstreamURL, logger)
	require.NoError(t, err)

	return &testEnv{
		mux:      httphandler.NewServeMux(h, logger),
		session:  session,
		store:    store,
		endpoint: endpoint,
	}
}

func (e *testEnv) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := setupEnv(t, "http://127.0.0.1:1")

	rec := env.do(http.MethodGet, "/api/v1/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, string(model.SessionLoggedOut), resp.Session)
}

func TestGetSession_LoggedOut(t *testing.T) {
	env := setupEnv(t, "http://127.0.0.1:1")

	rec := env.do(http.MethodGet, "/api/v1/session", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"logged_out","logged_in":false,"identity":null,"has_refresh_token":false,"expired":false}`, rec.Body.String())
}

func TestGetSession_LoggedInNeverExposesTokens(t *testing.T) {
	env := setupEnv(t, "http://127.0.0.1:1")
	token := makeToken(`{"name":"alice","profile_id":"p1"}`)
	require.NoError(t, env.session.LoginWithTokens(context.Background(), model.Credential{
		AccessToken:  token,
		RefreshToken: "refresh-secret",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}))

	rec := env.do(http.MethodGet, "/api/v1/session", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp httphandler.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.LoggedIn)
	assert.Equal(t, "logged_in", resp.Status)
	require.NotNil(t, resp.Identity)
	assert.Equal(t, "alice", resp.Identity.DisplayName)
	assert.Equal(t, "p1", resp.Identity.ProfileID)
	assert.Equal(t, "A", resp.Identity.Initial)
	assert.True(t, resp.HasRefreshToken)
	assert.False(t, resp.Expired)
	assert.NotEmpty(t, resp.ExpiresAt)

	assert.NotContains(t, rec.Body.String(), token)
	assert.NotContains(t, rec.Body.String(), "refresh-secret")
}

func TestSetIdentity(t *testing.T) {
	env := setupEnv(t, "http://127.0.0.1:1")

	rec := env.do(http.MethodPut, "/api/v1/session/identity", strings.NewReader(`{"display_name":"Bob"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, env.session.LoginWithTokens(context.Background(), model.Credential{AccessToken: makeToken(`{"name":"alice"}`)}))

	rec = env.do(http.MethodPut, "/api/v1/session/identity", strings.NewReader(`{"display_name":" Bob ","profile_id":"p2"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &model.Identity{DisplayName: "Bob", ProfileID: "p2"}, env.session.Identity())

	rec = env.do(http.MethodPut, "/api/v1/session/identity", strings.NewReader(`{"display_name":""}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &model.Identity{DisplayName: "alice"}, env.session.Identity())

	rec = env.do(http.MethodPut, "/api/v1/session/identity", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSession_ClearsEvenWhenServerFails(t *testing.T) {
	env := setupEnv(t, "http://127.0.0.1:1")
	env.endpoint.logoutErr = errors.New("connection refused")
	require.NoError(t, env.session.LoginWithTokens(context.Background(), model.Credential{AccessToken: "a", RefreshToken: "r"}))

	rec := env.do(http.MethodDelete, "/api/v1/session", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.session.LoggedIn())
	assert.Equal(t, int32(1), env.endpoint.logoutCalls.Load())
	assert.Empty(t, env.store.AccessToken())
}

func TestUpstream_ForwardsWithBearer(t *testing.T) {
	var gotAuth, gotPath, gotQuery, gotBody, gotContentType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Internal", "hidden")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"saved":true}`))
	}))
	t.Cleanup(upstream.Close)

	env := setupEnv(t, upstream.URL+"/api")
	require.NoError(t, env.session.LoginWithTokens(context.Background(), model.Credential{AccessToken: "a1"}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upstream/user/change-password?force=1", strings.NewReader(`{"new":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"saved":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Internal"))

	assert.Equal(t, "Bearer a1", gotAuth)
	assert.Equal(t, "/api/user/change-password", gotPath)
	assert.Equal(t, "force=1", gotQuery)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"new":"x"}`, gotBody)
}

func TestUpstream_RefreshFlowsBackIntoSession(t *testing.T) {
	refreshed := makeToken(`{"name":"alice","exp":1900000000}`)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+refreshed {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(upstream.Close)

	env := setupEnv(t, upstream.URL)
	env.endpoint.refreshed = driven.RefreshedTokens{AccessToken: refreshed, RefreshToken: "r2"}
	require.NoError(t, env.session.LoginWithTokens(context.Background(), model.Credential{AccessToken: "a1", RefreshToken: "r1"}))

	rec := env.do(http.MethodGet, "/api/v1/upstream/menus", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cred := env.session.Credential()
	require.NotNil(t, cred)
	assert.Equal(t, refreshed, cred.AccessToken)
	assert.Equal(t, "r2", cred.RefreshToken)
	assert.Equal(t, int64(1900000000), cred.ExpiresAt)
}

func TestUpstream_UnavailableIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstream.Close()

	env := setupEnv(t, upstream.URL)

	rec := env.do(http.MethodGet, "/api/v1/upstream/menus", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream unavailable")
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	httphandler.ApplyMiddleware(mux, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestApplyMiddleware_RequestID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ok", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := httphandler.ApplyMiddleware(mux, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(httphandler.RequestIDHeader), "an id is generated")

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(httphandler.RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(httphandler.RequestIDHeader), "an incoming id is echoed")
}

func TestApplyMiddleware_PanicAfterWrite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /partial", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	})

	rec := httptest.NewRecorder()
	httphandler.ApplyMiddleware(mux, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code, "a written status is not overwritten")
	assert.Empty(t, rec.Body.String())
}
