// Package session provides the session cache: the in-process (or Redis-backed)
// concurrent mapping from access token to user identity that is the
// authoritative fast-path validity check for every protected request.
//
// An access token is valid exactly as long as its cache entry exists and is
// unexpired. Logout and rotation remove entries synchronously, so revocation
// is immediately visible to concurrently-running requests without a database
// round-trip.
package session

import (
	"context"
	"time"
)

// Cache maps access tokens to user identities.
//
// Implementations must support safe concurrent use from arbitrary numbers of
// goroutines without a single global lock, and a Lookup must observe the
// effect of any Put/Remove that completed before it in real time.
type Cache interface {
	// Put inserts or overwrites a mapping. A zero expiresAt means the entry
	// never expires on its own and lives until explicitly removed.
	Put(ctx context.Context, token, userID string, expiresAt time.Time) error

	// Lookup resolves a token to a user identity. Expired entries behave as
	// missing and are evicted lazily.
	Lookup(ctx context.Context, token string) (string, bool, error)

	// Remove deletes a mapping. Removing a missing token is a no-op.
	Remove(ctx context.Context, token string) error

	// FindTokenByUser returns the most recently Put live token for a user.
	// Used during rotation to locate and invalidate the caller's previous
	// access token.
	FindTokenByUser(ctx context.Context, userID string) (string, bool, error)
}
