package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessionauth/internal/auth/registry"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
)

var (
	accessSecret  = []byte("service-test-access-secret-0123456789")
	refreshSecret = []byte("service-test-refresh-secret-012345678")

	compactJWT = regexp.MustCompile(`^[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+$`)
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type fixture struct {
	store  store.Store
	reg    registry.Registry
	users  *UserService
	tokens *TokenService
	access jwtx.Verifier
}

func newFixture(t *testing.T, reg func(store.Store) registry.Registry) *fixture {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	iss, err := jwtx.NewIssuer(accessSecret, refreshSecret, "auth-test", time.Minute, time.Hour)
	require.NoError(t, err)
	refresh, err := jwtx.NewVerifierHS256(refreshSecret, jwtx.VerifyOptions{Issuer: "auth-test", Audience: []string{jwtx.AudienceRefresh}})
	require.NoError(t, err)
	access, err := jwtx.NewVerifierHS256(accessSecret, jwtx.VerifyOptions{Issuer: "auth-test", Audience: []string{jwtx.AudienceAccess}})
	require.NoError(t, err)

	r := reg(s)
	return &fixture{
		store:  s,
		reg:    r,
		users:  &UserService{Store: s, Registry: r},
		tokens: &TokenService{Store: s, Registry: r, Issuer: iss, RefreshVerifier: refresh},
		access: access,
	}
}

func memoryRegistry(store.Store) registry.Registry { return registry.NewMemory() }

func storeRegistry(s store.Store) registry.Registry { return registry.NewStore(s) }

var registries = map[string]func(store.Store) registry.Registry{
	"memory": memoryRegistry,
	"store":  storeRegistry,
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memoryRegistry)

	u, err := f.users.Register(ctx, "alice", "pw1", false)
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.False(t, u.IsAdmin)
	require.NotEqual(t, "pw1", u.PasswordHash)

	t.Run("username taken", func(t *testing.T) {
		_, err := f.users.Register(ctx, "alice", "other", false)
		require.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.users.Register(ctx, "", "pw", false)
		require.ErrorIs(t, err, ErrInvalidRequest)
		_, err = f.users.Register(ctx, "bob", "", false)
		require.ErrorIs(t, err, ErrInvalidRequest)
		_, err = f.users.Register(ctx, "   ", "pw", false)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("admin flag", func(t *testing.T) {
		u, err := f.users.Register(ctx, "root", "pw", true)
		require.NoError(t, err)
		require.True(t, u.IsAdmin)
	})
}

func TestRegisterKeepsUsernameAsSent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memoryRegistry)

	u, err := f.users.Register(ctx, "alice ", "pw1", false)
	require.NoError(t, err)
	require.Equal(t, "alice ", u.Username)

	res, err := f.tokens.Login(ctx, "alice ", "pw1")
	require.NoError(t, err)
	require.Equal(t, "alice ", res.Username)

	// Differently padded names are different accounts.
	_, err = f.users.Register(ctx, " alice", "pw2", false)
	require.NoError(t, err)
	_, err = f.tokens.Login(ctx, "alice", "pw1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestConcurrentRegisterOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memoryRegistry)

	const n = 8
	var wins, taken atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.users.Register(ctx, "carol", "pw", false)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrUsernameTaken):
				taken.Add(1)
			default:
				t.Errorf("register: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(n-1), taken.Load())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memoryRegistry)

	u, err := f.users.Register(ctx, "alice", "pw1", true)
	require.NoError(t, err)

	res, err := f.tokens.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.Equal(t, "alice", res.Username)
	require.True(t, res.IsAdmin)
	require.Regexp(t, compactJWT, res.AccessToken)
	require.Regexp(t, compactJWT, res.RefreshToken)

	claims, err := f.access.Verify(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.Identity{UserID: u.ID, IsAdmin: true}, claims.Identity())

	ok, err := f.reg.IsValid(ctx, res.RefreshToken)
	require.NoError(t, err)
	require.True(t, ok, "login must register the refresh token")

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		_, errWrong := f.tokens.Login(ctx, "alice", "nope")
		_, errUnknown := f.tokens.Login(ctx, "nobody", "pw1")
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		require.Equal(t, errWrong.Error(), errUnknown.Error())
	})
}

func TestRefreshRotation(t *testing.T) {
	for name, reg := range registries {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, reg)

			_, err := f.users.Register(ctx, "alice", "pw1", false)
			require.NoError(t, err)
			login, err := f.tokens.Login(ctx, "alice", "pw1")
			require.NoError(t, err)

			pair, err := f.tokens.Refresh(ctx, login.RefreshToken)
			require.NoError(t, err)
			require.NotEqual(t, login.RefreshToken, pair.RefreshToken)
			require.Regexp(t, compactJWT, pair.AccessToken)

			_, err = f.tokens.Refresh(ctx, login.RefreshToken)
			require.ErrorIs(t, err, ErrInvalidToken, "rotated token must not be redeemable twice")

			_, err = f.tokens.Refresh(ctx, pair.RefreshToken)
			require.NoError(t, err, "the rotated-in token is redeemable")
		})
	}
}

func TestRefreshRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memoryRegistry)

	_, err := f.users.Register(ctx, "alice", "pw1", false)
	require.NoError(t, err)
	login, err := f.tokens.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := f.tokens.Refresh(ctx, "")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := f.tokens.Refresh(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("access token", func(t *testing.T) {
		_, err := f.tokens.Refresh(ctx, login.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("well signed but never registered", func(t *testing.T) {
		token, _, err := f.tokens.Issuer.IssueRefresh(jwtx.Identity{UserID: "ghost"})
		require.NoError(t, err)
		_, err = f.tokens.Refresh(ctx, token)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, registry.ErrNotRegistered)
	})
}

func TestConcurrentRefreshOneWinner(t *testing.T) {
	for name, reg := range registries {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, reg)

			_, err := f.users.Register(ctx, "alice", "pw1", false)
			require.NoError(t, err)
			login, err := f.tokens.Login(ctx, "alice", "pw1")
			require.NoError(t, err)

			const n = 8
			var wins, rejected atomic.Int32
			var wg sync.WaitGroup
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.tokens.Refresh(ctx, login.RefreshToken)
					switch {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, ErrInvalidToken):
						rejected.Add(1)
					default:
						t.Errorf("refresh: %v", err)
					}
				}()
			}
			wg.Wait()

			require.Equal(t, int32(1), wins.Load())
			require.Equal(t, int32(n-1), rejected.Load())
		})
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memoryRegistry)

	_, err := f.users.Register(ctx, "alice", "pw1", false)
	require.NoError(t, err)
	login, err := f.tokens.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.tokens.Logout(ctx, login.RefreshToken))
	_, err = f.tokens.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	// idempotent, and garbage is fine too
	require.NoError(t, f.tokens.Logout(ctx, login.RefreshToken))
	require.NoError(t, f.tokens.Logout(ctx, "garbage"))
	require.NoError(t, f.tokens.Logout(ctx, ""))
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memoryRegistry)

	alice, err := f.users.Register(ctx, "alice", "pw1", false)
	require.NoError(t, err)
	bob, err := f.users.Register(ctx, "bob", "pw2", false)
	require.NoError(t, err)
	admin, err := f.users.Register(ctx, "admin", "pw3", true)
	require.NoError(t, err)

	caller := func(u string, isAdmin bool) jwtx.Claims {
		return jwtx.Claims{UserID: u, IsAdmin: isAdmin}
	}

	t.Run("non-admin may not delete someone else", func(t *testing.T) {
		err := f.users.DeleteUser(ctx, caller(alice.ID, false), bob.ID)
		require.ErrorIs(t, err, ErrForbidden)

		_, err = f.store.Users().GetUserByID(ctx, bob.ID)
		require.NoError(t, err, "forbidden delete must leave the store untouched")
	})

	t.Run("forbidden comes before not found", func(t *testing.T) {
		err := f.users.DeleteUser(ctx, caller(alice.ID, false), "01HZXXXXXXXXXXXXXXXXXXXXXX")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("self delete revokes sessions", func(t *testing.T) {
		login, err := f.tokens.Login(ctx, "alice", "pw1")
		require.NoError(t, err)

		require.NoError(t, f.users.DeleteUser(ctx, caller(alice.ID, false), alice.ID))

		_, err = f.store.Users().GetUserByID(ctx, alice.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = f.tokens.Refresh(ctx, login.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("admin may delete anyone", func(t *testing.T) {
		require.NoError(t, f.users.DeleteUser(ctx, caller(admin.ID, true), bob.ID))
	})

	t.Run("missing target", func(t *testing.T) {
		err := f.users.DeleteUser(ctx, caller(admin.ID, true), bob.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed target is not found", func(t *testing.T) {
		for _, id := range []string{"someone-else", "", "01HZ"} {
			err := f.users.DeleteUser(ctx, caller(admin.ID, true), id)
			require.ErrorIs(t, err, ErrNotFound, id)
		}
	})
}

func TestHousekeepingPrunes(t *testing.T) {
	m := registry.NewMemory()
	now := time.Now().UTC()
	require.NoError(t, m.Register(context.Background(), "stale", registry.Entry{UserID: "u", ExpiresAt: now.Add(-time.Second)}))

	hk := NewHousekeepingService(m, slogDiscard(), time.Hour)
	hk.Start()
	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
	hk.Stop()
}
