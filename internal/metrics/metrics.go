// Package metrics exposes Prometheus counters for the authentication hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts protected requests resolved from the session cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muster_session_cache_hits_total",
		Help: "Protected requests authorized via the session cache.",
	})

	// CacheMisses counts protected requests with no live cache entry.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muster_session_cache_misses_total",
		Help: "Protected requests that missed the session cache.",
	})

	// Rejected counts requests short-circuited with 401.
	Rejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muster_requests_rejected_total",
		Help: "Requests rejected before reaching a handler.",
	})

	// SessionsIssued counts access/refresh pairs minted, by trigger.
	SessionsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muster_sessions_issued_total",
		Help: "Token pairs issued.",
	}, []string{"trigger"}) // register, login, refresh

	// SessionsRevoked counts sessions ended by logout or revoke-all.
	SessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muster_sessions_revoked_total",
		Help: "Sessions explicitly revoked.",
	})

	// QuotaEvictions counts refresh records silently retired at the per-user
	// quota.
	QuotaEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muster_refresh_quota_evictions_total",
		Help: "Oldest-expiring refresh tokens evicted to enforce the per-user quota.",
	})
)
