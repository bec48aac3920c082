package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/registry"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/idx"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

const (
	MaxUsernameLength = 64

	// MaxPasswordLength bounds the work a single request can make the hasher do.
	MaxPasswordLength = 1024
)

type UserService struct {
	Store    store.Store
	Registry registry.Registry
}

// Register creates a new account. The username is unique, a concurrent
// registration of the same name loses on the unique index and gets
// ErrUsernameTaken.
func (s *UserService) Register(ctx context.Context, username, password string, isAdmin bool) (domain.User, error) {
	// Names are stored exactly as sent, login looks them up the same way.
	if strings.TrimSpace(username) == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: username and password are required", ErrInvalidRequest)
	}
	if len(username) > MaxUsernameLength || len(password) > MaxPasswordLength {
		return domain.User{}, fmt.Errorf("%w: username or password too long", ErrInvalidRequest)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", u.ID, "is_admin", u.IsAdmin)
	return u, nil
}

// DeleteUser removes targetID on behalf of caller. Only the user themselves
// or an admin may do it. Authorization is checked before the store is touched,
// so an unauthorized caller learns nothing about which ids exist.
func (s *UserService) DeleteUser(ctx context.Context, caller jwtx.Claims, targetID string) error {
	if caller.UserID != targetID && !caller.IsAdmin {
		return ErrForbidden
	}

	// Every id this service hands out is a ULID, anything else can't exist.
	if _, err := idx.Parse(targetID); err != nil {
		return ErrNotFound
	}

	if err := s.Store.Users().DeleteUser(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	l := slogx.FromContext(ctx)
	// The store backed registry cascades with the user row, other backends
	// need an explicit sweep.
	if err := s.Registry.RevokeUser(ctx, targetID); err != nil {
		l.Error("failed to revoke refresh tokens of deleted user", "user_id", targetID, "error", err)
	}

	l.Info("user deleted", "user_id", targetID, "by", caller.UserID)
	return nil
}
