package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s store.Store, username string) domain.User {
	t.Helper()
	u := domain.User{ID: idx.New().String(), Username: username, PasswordHash: "$argon2id$hash"}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u := domain.User{ID: idx.New().String(), Username: "alice", PasswordHash: "$argon2id$hash", IsAdmin: true}
	require.NoError(t, s.Users().CreateUser(ctx, u))

	t.Run("get by id", func(t *testing.T) {
		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", got.Username)
		require.True(t, got.IsAdmin)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("get by username", func(t *testing.T) {
		got, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Equal(t, u.PasswordHash, got.PasswordHash)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.Users().GetUserByUsername(ctx, "bob")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := s.Users().CreateUser(ctx, domain.User{ID: idx.New().String(), Username: "alice", PasswordHash: "x"})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("count", func(t *testing.T) {
		n, err := s.Users().CountUsers(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Users().DeleteUser(ctx, u.ID))
		require.ErrorIs(t, s.Users().DeleteUser(ctx, u.ID), store.ErrNotFound)

		_, err := s.Users().GetUserByID(ctx, u.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestConcurrentRegistrationOneWinner(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	const n = 8
	var wins, dupes atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Users().CreateUser(ctx, domain.User{ID: idx.New().String(), Username: "racer", PasswordHash: "x"})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, store.ErrAlreadyExists):
				dupes.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.EqualValues(t, n-1, dupes.Load())
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := createUser(t, s, "alice")
	now := time.Now()

	rt := domain.RefreshToken{ID: idx.New().String(), UserID: u.ID, TokenHash: "fp-1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))

	t.Run("lookup", func(t *testing.T) {
		got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "fp-1")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.UserID)
		require.WithinDuration(t, rt.ExpiresAt, got.ExpiresAt, time.Millisecond)
		require.True(t, got.Active(now))
	})

	t.Run("consume once", func(t *testing.T) {
		require.NoError(t, s.RefreshTokens().ConsumeRefreshToken(ctx, "fp-1", now))
		require.ErrorIs(t, s.RefreshTokens().ConsumeRefreshToken(ctx, "fp-1", now), store.ErrNotFound)
	})

	t.Run("expired cannot be consumed", func(t *testing.T) {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: idx.New().String(), UserID: u.ID, TokenHash: "fp-old", ExpiresAt: now.Add(-time.Minute),
		}))
		require.ErrorIs(t, s.RefreshTokens().ConsumeRefreshToken(ctx, "fp-old", now), store.ErrNotFound)
	})

	t.Run("no expiry round trips", func(t *testing.T) {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: idx.New().String(), UserID: u.ID, TokenHash: "fp-forever",
		}))
		got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "fp-forever")
		require.NoError(t, err)
		require.True(t, got.ExpiresAt.IsZero())
		require.NoError(t, s.RefreshTokens().ConsumeRefreshToken(ctx, "fp-forever", now.Add(365*24*time.Hour)))
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "fp-unknown"))
		require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "fp-1"))
	})

	t.Run("prune", func(t *testing.T) {
		n, err := s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 3, n) // fp-1, fp-old, fp-forever
	})
}

func TestDeleteUserCascadesTokens(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := createUser(t, s, "carol")

	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID: idx.New().String(), UserID: u.ID, TokenHash: "fp-c",
	}))
	require.NoError(t, s.Users().DeleteUser(ctx, u.ID))

	_, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "fp-c")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevokeAllUserRefreshTokens(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	u := createUser(t, s, "dave")

	for _, fp := range []string{"a", "b"} {
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
			ID: idx.New().String(), UserID: u.ID, TokenHash: fp,
		}))
	}
	require.NoError(t, s.RefreshTokens().RevokeAllUserRefreshTokens(ctx, u.ID))

	for _, fp := range []string{"a", "b"} {
		got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
		require.NoError(t, err)
		require.True(t, got.Revoked)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, domain.User{ID: idx.New().String(), Username: "ghost", PasswordHash: "x"}); err != nil {
			return err
		}
		return store.ErrNotFound
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByUsername(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.Error(t, tx.WithTx(ctx, func(store.Tx) error { return nil }), "nested tx not supported")
		return nil
	}))
}
