package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/registry"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Username string
	IsAdmin  bool
	domain.TokenPair
}

type TokenService struct {
	Store    store.Store
	Registry registry.Registry
	Issuer   *jwtx.Issuer

	// RefreshVerifier checks refresh tokens, it must use the refresh secret.
	RefreshVerifier jwtx.Verifier
}

// Login checks the credentials and starts a session. Unknown usernames and
// wrong passwords are indistinguishable to the caller, both in the error and
// in how long the check takes.
func (s *TokenService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyDummy(password)
			l.Info("login failed", "reason", "unknown_user")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatchedPassword) {
			l.Error("stored password hash is unusable", "user_id", u.ID, "error", err)
		}
		l.Info("login failed", "reason", "bad_password", "user_id", u.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, jwtx.Identity{UserID: u.ID, IsAdmin: u.IsAdmin})
	if err != nil {
		return LoginResult{}, err
	}

	l.Info("login succeeded", "user_id", u.ID)
	return LoginResult{Username: u.Username, IsAdmin: u.IsAdmin, TokenPair: pair}, nil
}

// Refresh redeems a refresh token for a new pair. The submitted token is
// rotated out, presenting it again fails with ErrInvalidToken. The identity
// in the new pair is the one carried by the refresh token.
func (s *TokenService) Refresh(ctx context.Context, token string) (domain.TokenPair, error) {
	if token == "" {
		return domain.TokenPair{}, ErrUnauthenticated
	}

	claims, err := s.RefreshVerifier.Verify(token)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id := claims.Identity()
	pair, err := s.Issuer.IssuePair(id)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}

	entry := registry.Entry{UserID: id.UserID, ExpiresAt: pair.RefreshExpiresAt}
	if err := s.Registry.Rotate(ctx, token, pair.RefreshToken, entry); err != nil {
		if errors.Is(err, registry.ErrNotRegistered) {
			return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	slogx.FromContext(ctx).Debug("refresh token rotated", "user_id", id.UserID)
	return domain.TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Logout revokes the refresh token. It never fails from the caller's point
// of view: unknown, malformed and already revoked tokens are all fine, and a
// backend error is only logged.
func (s *TokenService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.Registry.Revoke(ctx, token); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke refresh token", "error", err)
	}
	return nil
}

// issue mints a pair and registers its refresh token.
func (s *TokenService) issue(ctx context.Context, id jwtx.Identity) (domain.TokenPair, error) {
	pair, err := s.Issuer.IssuePair(id)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}

	entry := registry.Entry{UserID: id.UserID, ExpiresAt: pair.RefreshExpiresAt}
	if err := s.Registry.Register(ctx, pair.RefreshToken, entry); err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return domain.TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}
