package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/musterapp/muster/internal/domain"
	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	s, err := NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "user-" + idx.New().String(),
		DisplayName:  "Test User",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestRefreshTokenLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)

	require.NoError(t, s.RefreshTokens().DeleteRefreshTokenByHash(ctx, "hash-1"))
	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting again is a no-op, not an error.
	require.NoError(t, s.RefreshTokens().DeleteRefreshTokenByHash(ctx, "hash-1"))
}

func TestRefreshTokenExpiryBehavesLikeAbsence(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)

	expired := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "hash-expired",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, expired))

	_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-expired")
	require.ErrorIs(t, err, store.ErrNotFound)

	live, err := s.RefreshTokens().ListUserRefreshTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, live)
}

func TestListUserRefreshTokensOrdersByExpiryDescending(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)

	base := time.Now()
	for i, hash := range []string{"h-oldest", "h-middle", "h-newest"} {
		rt := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: hash,
			ExpiresAt: base.Add(time.Duration(i+1) * time.Hour),
		}
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))
	}

	live, err := s.RefreshTokens().ListUserRefreshTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, live, 3)
	require.Equal(t, "h-newest", live[0].TokenHash)
	require.Equal(t, "h-oldest", live[2].TokenHash, "oldest-expiring must be at the tail")
}

func TestDeleteUserRefreshTokens(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)
	other := createTestUser(t, s)

	for _, owner := range []string{u.ID, u.ID, other.ID} {
		rt := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    owner,
			TokenHash: idx.New().String(),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))
	}

	require.NoError(t, s.RefreshTokens().DeleteUserRefreshTokens(ctx, u.ID))

	mine, err := s.RefreshTokens().ListUserRefreshTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, mine)

	theirs, err := s.RefreshTokens().ListUserRefreshTokens(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s)

	sentinel := store.ErrNotFound
	err := s.WithTx(ctx, func(tx store.Tx) error {
		rt := domain.RefreshToken{
			ID:        idx.New().String(),
			UserID:    u.ID,
			TokenHash: "hash-rollback",
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-rollback")
	require.ErrorIs(t, err, store.ErrNotFound, "insert inside a failed transaction must not persist")
}
