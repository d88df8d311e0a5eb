package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/musterapp/muster/internal/service"
	"github.com/musterapp/muster/internal/session"
	"github.com/musterapp/muster/internal/store/drivers/sqlite"
	"github.com/musterapp/muster/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server

	cache *session.MemoryCache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	cache := session.NewMemoryCache()
	users := &service.UserService{Store: st}
	tokens := &service.TokenService{
		Store:            st,
		Cache:            cache,
		TokenSize:        cryptox.TokenSize512,
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       30 * 24 * time.Hour,
		MaxTokensPerUser: 3,
	}
	events := &service.EventService{Store: st}

	router := NewRouter(RouterConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cache:  cache,
		Auth:   &AuthHandler{Users: users, Tokens: tokens},
		Events: &EventHandler{Events: events},
		Catalog: &CatalogHandler{
			Events: events,
		},
		System: &SystemHandler{Store: st, Service: "muster", Version: "test"},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, cache: cache}
}

// jarClient follows cookies like a browser would.
func (s *testServer) jarClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (s *testServer) postJSON(t *testing.T, client *http.Client, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) get(t *testing.T, client *http.Client, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func registerBody(username string) map[string]string {
	return map[string]string{
		"username": username,
		"password": "correct1horse2battery",
	}
}

func sessionCookies(t *testing.T, resp *http.Response) (access, refresh *http.Cookie) {
	t.Helper()

	for _, c := range resp.Cookies() {
		switch c.Name {
		case AccessTokenCookie:
			access = c
		case RefreshTokenCookie:
			refresh = c
		}
	}
	require.NotNil(t, access, "access cookie missing")
	require.NotNil(t, refresh, "refresh cookie missing")
	require.True(t, access.HttpOnly)
	require.True(t, refresh.HttpOnly)
	return access, refresh
}

func TestRegisterGrantsWorkingSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := srv.jarClient(t)

	resp := srv.postJSON(t, client, "/v1/auth/register", registerBody("alice"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sess sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.Equal(t, "alice", sess.User.Username)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), sess.ExpiresAt, time.Minute)

	// The session works immediately on a protected endpoint.
	resp = srv.get(t, client, "/v1/auth/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me userResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	require.Equal(t, sess.User.ID, me.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := srv.jarClient(t)

	resp := srv.postJSON(t, client, "/v1/auth/register", registerBody("bob"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.postJSON(t, client, "/v1/auth/login", map[string]string{
		"username": "bob",
		"password": "not-the-password1",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutEndsSessionAndIsIdempotent(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := srv.jarClient(t)

	resp := srv.postJSON(t, client, "/v1/auth/register", registerBody("carol"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	access, _ := sessionCookies(t, resp)

	resp = srv.postJSON(t, client, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The old token is dead even if presented again explicitly.
	resp = srv.get(t, client, "/v1/auth/me", access)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logging out twice, or with no session at all, still succeeds.
	resp = srv.postJSON(t, client, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRefreshRotationChain(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := &http.Client{} // no jar; cookies managed explicitly

	resp := srv.postJSON(t, client, "/v1/auth/register", registerBody("dave"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	access1, refresh1 := sessionCookies(t, resp)

	resp = srv.get(t, client, "/v1/auth/me", access1)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.postJSON(t, client, "/v1/auth/refresh-token", nil, refresh1)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access2, refresh2 := sessionCookies(t, resp)
	require.NotEqual(t, access1.Value, access2.Value)
	require.NotEqual(t, refresh1.Value, refresh2.Value)

	// The pre-rotation access token is invalid the moment rotation succeeds.
	resp = srv.get(t, client, "/v1/auth/me", access1)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The new one works.
	resp = srv.get(t, client, "/v1/auth/me", access2)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The consumed refresh token is single-use.
	resp = srv.postJSON(t, client, "/v1/auth/refresh-token", nil, refresh1)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The rotated refresh token still works.
	resp = srv.postJSON(t, client, "/v1/auth/refresh-token", nil, refresh2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutAllRevokesEveryRefreshToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := &http.Client{}

	resp := srv.postJSON(t, client, "/v1/auth/register", registerBody("erin"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_, refresh1 := sessionCookies(t, resp)

	resp = srv.postJSON(t, client, "/v1/auth/login", registerBody("erin"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access2, refresh2 := sessionCookies(t, resp)

	resp = srv.postJSON(t, client, "/v1/auth/logout-all", nil, access2)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The current session is gone.
	resp = srv.get(t, client, "/v1/auth/me", access2)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// No refresh token survives, from any session.
	for _, rc := range []*http.Cookie{refresh1, refresh2} {
		resp = srv.postJSON(t, client, "/v1/auth/refresh-token", nil, rc)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestProfileUpdateAndAccountDeletion(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := srv.jarClient(t)

	resp := srv.postJSON(t, client, "/v1/auth/register", registerBody("grace"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_, refresh := sessionCookies(t, resp)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/v1/auth/me",
		bytes.NewBufferString(`{"display_name":"Grace H."}`))
	require.NoError(t, err)
	patchResp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = patchResp.Body.Close() })
	require.Equal(t, http.StatusOK, patchResp.StatusCode)

	var me userResponse
	require.NoError(t, json.NewDecoder(patchResp.Body).Decode(&me))
	require.Equal(t, "Grace H.", me.DisplayName)

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/v1/auth/me", nil)
	require.NoError(t, err)
	delResp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = delResp.Body.Close() })
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	// The account and all its sessions are gone.
	resp = srv.postJSON(t, client, "/v1/auth/login", registerBody("grace"))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = srv.postJSON(t, client, "/v1/auth/refresh-token", nil, refresh)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublicCatalogNeedsNoSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := &http.Client{}

	for _, path := range []string{"/v1/categories", "/v1/subcategories", "/v1/about"} {
		resp := srv.get(t, client, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, "path %s", path)
	}
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	client := srv.jarClient(t)

	resp := srv.postJSON(t, client, "/v1/auth/register", registerBody("frank"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.postJSON(t, client, "/v1/events", map[string]any{
		"title":     "board games night",
		"starts_at": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ev eventResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ev))
	require.NotEmpty(t, ev.ID)

	resp = srv.postJSON(t, client, "/v1/events/"+ev.ID+"/polls", map[string]any{
		"question": "which night suits?",
		"options":  []string{"friday", "saturday"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.get(t, client, "/v1/events/"+ev.ID+"/polls")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var polls []pollResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&polls))
	require.Len(t, polls, 1)
	require.Equal(t, []string{"friday", "saturday"}, polls[0].Options)

	// Without a session the same endpoints are rejected.
	anon := &http.Client{}
	resp = srv.get(t, anon, "/v1/events/"+ev.ID)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
