package service

import (
	"context"
	"errors"
	"time"

	"github.com/musterapp/muster/internal/domain"
	"github.com/musterapp/muster/internal/metrics"
	"github.com/musterapp/muster/internal/session"
	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/pkg/cryptox"
	"github.com/musterapp/muster/pkg/idx"
	"github.com/musterapp/muster/pkg/slogx"
)

// ErrInvalidRefresh is returned when a presented refresh token is absent,
// expired, or already rotated. All three cases are indistinguishable to the
// caller on purpose.
var ErrInvalidRefresh = errors.New("invalid_refresh_token")

// TokenService orchestrates creation, rotation, and revocation of
// access/refresh token pairs. It enforces the per-user refresh token quota
// against the store inside one transaction per operation, so concurrent logins
// for a saturated user cannot exceed the limit.
//
// The service never writes to the session cache on issuance — populating the
// cache from successful authentication responses is the pipeline's job. It
// does remove cache entries on revocation, because revocation must be visible
// to in-flight requests immediately.
type TokenService struct {
	Store store.Store
	Cache session.Cache

	TokenSize        int           // bytes of entropy per token
	AccessTTL        time.Duration // access token lifetime (cookie + cache entry)
	RefreshTTL       time.Duration // refresh token lifetime (persisted)
	MaxTokensPerUser int           // live refresh records allowed per user
}

// Issue mints a new access/refresh pair for userID.
//
// Quota check, eviction, and insertion run in a single transaction: either the
// new record is durably inserted and the pair is returned, or nothing changes.
// When the user is at quota the oldest-expiring record is silently retired
// rather than rejecting the new login.
func (s *TokenService) Issue(ctx context.Context, userID string) (domain.TokenPair, error) {
	pair, err := s.newPair()
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return s.insertWithQuota(ctx, tx, userID, cryptox.FingerprintToken(pair.RefreshToken))
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return pair, nil
}

// Refresh rotates a refresh token: the presented token is resolved and
// deleted (refresh tokens are single-use) and a brand-new pair is issued, all
// in one transaction. It returns the new pair and the owning userID so the
// pipeline can drop the caller's previous access-token cache entry.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (domain.TokenPair, string, error) {
	pair, err := s.newPair()
	if err != nil {
		return domain.TokenPair{}, "", err
	}

	fp := cryptox.FingerprintToken(refreshOpaque)

	var userID string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rt, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		userID = rt.UserID

		if err := tx.RefreshTokens().DeleteRefreshTokenByHash(ctx, fp); err != nil {
			return err
		}

		return s.insertWithQuota(ctx, tx, rt.UserID, cryptox.FingerprintToken(pair.RefreshToken))
	})
	if err != nil {
		return domain.TokenPair{}, "", err
	}

	return pair, userID, nil
}

// Revoke ends the current session: the access-token cache entry is removed
// immediately and the presented refresh record is deleted. Both steps are
// idempotent; revoking an already-ended session is a no-op.
func (s *TokenService) Revoke(ctx context.Context, accessToken, refreshOpaque string) error {
	if accessToken != "" {
		if err := s.Cache.Remove(ctx, accessToken); err != nil {
			slogx.FromContext(ctx).Warn("session cache remove failed", "err", err)
		}
	}

	if refreshOpaque == "" {
		return nil
	}

	err := s.Store.RefreshTokens().DeleteRefreshTokenByHash(ctx, cryptox.FingerprintToken(refreshOpaque))
	if err != nil {
		return err
	}

	metrics.SessionsRevoked.Inc()
	return nil
}

// RevokeAll ends every session of a user: all refresh records are deleted and
// the user's live access-token cache entry is removed.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.Store.RefreshTokens().DeleteUserRefreshTokens(ctx, userID); err != nil {
		return err
	}

	if token, ok, err := s.Cache.FindTokenByUser(ctx, userID); err == nil && ok {
		if err := s.Cache.Remove(ctx, token); err != nil {
			slogx.FromContext(ctx).Warn("session cache remove failed", "err", err)
		}
	}

	metrics.SessionsRevoked.Inc()
	return nil
}

// AccessTokenExpiry computes the expiry for a pair issued now. Exposed for
// cookie metadata.
func (s *TokenService) AccessTokenExpiry(now time.Time) time.Time {
	return now.Add(s.AccessTTL)
}

func (s *TokenService) newPair() (domain.TokenPair, error) {
	access, err := cryptox.GenerateToken(s.TokenSize)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := cryptox.GenerateToken(s.TokenSize)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: time.Now().Add(s.AccessTTL),
	}, nil
}

// insertWithQuota enforces the per-user quota and inserts the new record.
// Must run inside the caller's transaction.
func (s *TokenService) insertWithQuota(ctx context.Context, tx store.Tx, userID, tokenHash string) error {
	live, err := tx.RefreshTokens().ListUserRefreshTokens(ctx, userID)
	if err != nil {
		return err
	}

	// live is ordered newest-expiring first; evict from the tail until the
	// new record fits.
	for len(live) >= s.MaxTokensPerUser {
		oldest := live[len(live)-1]
		if err := tx.RefreshTokens().DeleteRefreshTokenByHash(ctx, oldest.TokenHash); err != nil {
			return err
		}
		live = live[:len(live)-1]
		metrics.QuotaEvictions.Inc()
	}

	return tx.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(s.RefreshTTL),
	})
}
