package domain

import "time"

// TokenPair is what the issuance service returns: the cleartext access and
// refresh tokens plus the access token's expiry for cookie metadata. The
// access token is never persisted; its only authoritative record of validity
// is the session cache. The refresh token is persisted as a fingerprint only.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// RefreshToken models a stored refresh token record. At most a configured
// number of live records exist per user; issuing beyond the quota silently
// retires the oldest-expiring record. Absence of a record is revocation —
// records are deleted, never flagged.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	CreatedAt time.Time
}
