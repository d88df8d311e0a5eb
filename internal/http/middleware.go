package http

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/musterapp/muster/internal/metrics"
	"github.com/musterapp/muster/internal/session"
	"github.com/musterapp/muster/pkg/httpx"
	"github.com/musterapp/muster/pkg/slogx"
)

// AccessTokenCookie is the cookie carrying the opaque access token.
const AccessTokenCookie = "access_token"

// RefreshTokenCookie is the cookie carrying the opaque refresh token. Only the
// authentication handlers read it; the pipeline never does.
const RefreshTokenCookie = "refresh_token"

// publicSuffixes is the fixed allow-list of unauthenticated endpoints,
// suffix-matched against the request path. Everything else is protected.
var publicSuffixes = []string{
	"/register",
	"/login",
	"/logout",
	"/refresh-token",
	"/about",
	"/categories",
	"/subcategories",
}

// authSuffixes marks the authentication endpoints whose successful responses
// the pipeline post-processes to populate, rotate, or evict cache entries.
var authSuffixes = []string{
	"/register",
	"/login",
	"/logout",
	"/refresh-token",
}

// systemPrefixes are operational endpoints outside the application surface
// (health, metrics, docs). They bypass classification entirely.
var systemPrefixes = []string{"/livez", "/readyz", "/metrics", "/swagger/"}

// setCookiePattern is the transport-boundary fallback for extracting a freshly
// issued access token from a serialized Set-Cookie header when no typed
// receipt is present.
var setCookiePattern = regexp.MustCompile(`access_token=([^;]*);`)

// SessionMiddleware is the request authorization pipeline. It classifies every
// inbound request, consults the session cache on protected routes, and
// post-processes authentication-endpoint responses to keep the cache current.
//
// The cache is this middleware's only side-effect target; it never touches
// persistent storage.
func SessionMiddleware(cache session.Cache) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)
			path := r.URL.Path

			if hasPrefix(path, systemPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			token := accessTokenFromRequest(r)
			isPublic := hasSuffix(path, publicSuffixes)
			isLogout := strings.HasSuffix(path, "/logout")
			isRefresh := strings.HasSuffix(path, "/refresh-token")

			// Logout takes effect before the downstream handler runs, so the
			// session closes regardless of handler outcome. Identity is
			// resolved first so the handler can still clean up its refresh
			// record.
			if isLogout && token != "" {
				if userID, ok, err := cache.Lookup(ctx, token); err == nil && ok {
					ctx = contextWithUserID(ctx, userID)
				}
				if err := cache.Remove(ctx, token); err != nil {
					log.Warn("session cache remove failed", "err", err)
				}
			}

			if !isPublic {
				if token == "" {
					metrics.Rejected.Inc()
					httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}

				userID, ok, err := cache.Lookup(ctx, token)
				if err != nil {
					log.Warn("session cache lookup failed", "err", err)
				}
				if !ok {
					metrics.CacheMisses.Inc()
					metrics.Rejected.Inc()
					httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}

				metrics.CacheHits.Inc()
				ctx = contextWithUserID(ctx, userID)
			}

			// Forward, capturing the status and the typed token receipt the
			// handler may leave behind.
			receipt := &TokenReceipt{}
			ctx = contextWithReceipt(ctx, receipt)
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r.WithContext(ctx))

			if !hasSuffix(path, authSuffixes) {
				return
			}
			if rw.status < 200 || rw.status > 299 {
				return
			}

			newToken := receipt.AccessToken
			if newToken == "" {
				// Transport-boundary fallback: the handler set the cookie
				// without recording a receipt.
				newToken = tokenFromSetCookie(rw.Header())
			}
			if newToken == "" || receipt.UserID == "" {
				return
			}

			// Rotation: only the freshest access token stays valid.
			if isRefresh {
				if old, ok, err := cache.FindTokenByUser(ctx, receipt.UserID); err == nil && ok {
					if err := cache.Remove(ctx, old); err != nil {
						log.Warn("session cache remove failed", "err", err)
					}
				}
			}

			if err := cache.Put(ctx, newToken, receipt.UserID, receipt.ExpiresAt); err != nil {
				log.Error("session cache put failed", "err", err)
			}
		})
	}
}

func accessTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func tokenFromSetCookie(h http.Header) string {
	for _, v := range h.Values("Set-Cookie") {
		if m := setCookiePattern.FindStringSubmatch(v); m != nil {
			return m[1]
		}
	}
	return ""
}

func hasSuffix(path string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
