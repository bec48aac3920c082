package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/pkg/idx"
)

// Store keeps the registry in the credential store's refresh_tokens table.
// Rows cascade when their user is deleted.
type Store struct {
	backend store.Store

	// Now is overridable for tests.
	Now func() time.Time
}

var _ Registry = (*Store)(nil)

func NewStore(s store.Store) *Store {
	return &Store{
		backend: s,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *Store) record(token string, e Entry, now time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    e.UserID,
		TokenHash: fingerprint(token),
		ExpiresAt: e.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Store) Register(ctx context.Context, token string, e Entry) error {
	if err := r.backend.RefreshTokens().CreateRefreshToken(ctx, r.record(token, e, r.Now())); err != nil {
		return fmt.Errorf("register refresh token: %w", err)
	}
	return nil
}

func (r *Store) IsValid(ctx context.Context, token string) (bool, error) {
	rt, err := r.backend.RefreshTokens().GetRefreshTokenByHash(ctx, fingerprint(token))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup refresh token: %w", err)
	}
	return rt.Active(r.Now()), nil
}

func (r *Store) Revoke(ctx context.Context, token string) error {
	if err := r.backend.RefreshTokens().RevokeRefreshToken(ctx, fingerprint(token)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *Store) Rotate(ctx context.Context, old, next string, e Entry) error {
	now := r.Now()
	err := r.backend.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().ConsumeRefreshToken(ctx, fingerprint(old), now); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, r.record(next, e, now))
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

func (r *Store) RevokeUser(ctx context.Context, userID string) error {
	if err := r.backend.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

func (r *Store) Prune(ctx context.Context) error {
	if _, err := r.backend.RefreshTokens().DeleteExpiredRefreshTokens(ctx, r.Now()); err != nil {
		return fmt.Errorf("prune refresh tokens: %w", err)
	}
	return nil
}
