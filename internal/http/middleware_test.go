package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/musterapp/muster/internal/session"
	"github.com/musterapp/muster/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func pipelineFixture(handler http.HandlerFunc) (*session.MemoryCache, http.Handler) {
	cache := session.NewMemoryCache()
	return cache, SessionMiddleware(cache)(handler)
}

func withAccessCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	return req
}

func TestProtectedRequestWithoutTokenIsRejectedBeforeHandler(t *testing.T) {
	t.Parallel()

	invoked := 0
	_, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		invoked++
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, invoked, "handler must never run for an unauthorized request")

	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, httpx.ErrorBody{Status: 401, Error: "Unauthorized"}, body)
}

func TestProtectedRequestWithUnknownTokenIsRejected(t *testing.T) {
	t.Parallel()

	invoked := 0
	_, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		invoked++
	})

	rec := httptest.NewRecorder()
	req := withAccessCookie(httptest.NewRequest(http.MethodGet, "/v1/events", nil), "never-issued")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, invoked)
}

func TestProtectedRequestWithLiveTokenAttachesIdentity(t *testing.T) {
	t.Parallel()

	var gotUser string
	cache, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
	})
	require.NoError(t, cache.Put(t.Context(), "tok-1", "user-1", time.Time{}))

	rec := httptest.NewRecorder()
	req := withAccessCookie(httptest.NewRequest(http.MethodGet, "/v1/events", nil), "tok-1")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", gotUser)
}

func TestPublicEndpointBypassesAuthorization(t *testing.T) {
	t.Parallel()

	invoked := 0
	_, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		invoked++
	})

	for _, path := range []string{
		"/v1/auth/login",
		"/v1/auth/register",
		"/v1/categories",
		"/v1/subcategories",
		"/v1/about",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
	require.Equal(t, 5, invoked)
}

func TestSuccessfulLoginPopulatesCacheFromReceipt(t *testing.T) {
	t.Parallel()

	cache, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		receiptFromContext(r.Context()).set("user-1", "tok-new", time.Now().Add(time.Hour))
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))

	userID, ok, err := cache.Lookup(t.Context(), "tok-new")
	require.NoError(t, err)
	require.True(t, ok, "pipeline must install the issued token")
	require.Equal(t, "user-1", userID)
}

func TestFailedLoginLeavesCacheUntouched(t *testing.T) {
	t.Parallel()

	cache, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		receiptFromContext(r.Context()).set("user-1", "tok-new", time.Now().Add(time.Hour))
		w.WriteHeader(http.StatusUnauthorized)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))

	_, ok, err := cache.Lookup(t.Context(), "tok-new")
	require.NoError(t, err)
	require.False(t, ok, "non-2xx responses must not mutate the cache")
}

func TestSetCookieFallbackWhenNoReceiptToken(t *testing.T) {
	t.Parallel()

	cache, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		// Identity recorded, but the token only appears in the serialized
		// cookie header.
		receiptFromContext(r.Context()).UserID = "user-1"
		http.SetCookie(w, &http.Cookie{Name: AccessTokenCookie, Value: "tok-raw", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))

	userID, ok, err := cache.Lookup(t.Context(), "tok-raw")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "user-1", userID)
}

func TestLogoutRemovesEntryBeforeHandlerRuns(t *testing.T) {
	t.Parallel()

	var sawUser string
	var entryGone bool
	var cache *session.MemoryCache
	cache, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		sawUser, _ = UserIDFromContext(r.Context())
		_, ok, _ := cache.Lookup(r.Context(), "tok-1")
		entryGone = !ok
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, cache.Put(t.Context(), "tok-1", "user-1", time.Time{}))

	rec := httptest.NewRecorder()
	req := withAccessCookie(httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil), "tok-1")
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-1", sawUser, "identity must be resolved before removal")
	require.True(t, entryGone, "cache entry must be gone by the time the handler runs")
}

func TestLogoutWithoutSessionIsHarmless(t *testing.T) {
	t.Parallel()

	invoked := 0
	_, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		invoked++
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, invoked)
}

func TestRefreshRotationEvictsPreviousToken(t *testing.T) {
	t.Parallel()

	cache, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		receiptFromContext(r.Context()).set("user-1", "tok-2", time.Now().Add(time.Hour))
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, cache.Put(t.Context(), "tok-1", "user-1", time.Time{}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/refresh-token", nil))

	_, ok, err := cache.Lookup(t.Context(), "tok-1")
	require.NoError(t, err)
	require.False(t, ok, "the previous access token must be invalidated by rotation")

	userID, ok, err := cache.Lookup(t.Context(), "tok-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "user-1", userID)
}

func TestOperationalEndpointsBypassPipeline(t *testing.T) {
	t.Parallel()

	invoked := 0
	_, h := pipelineFixture(func(w http.ResponseWriter, r *http.Request) {
		invoked++
	})

	for _, path := range []string{"/livez", "/readyz", "/metrics", "/swagger/index.html"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
	require.Equal(t, 4, invoked)
}
