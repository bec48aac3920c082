// Package registry tracks which refresh tokens are currently redeemable.
//
// A refresh token is valid only while it is registered here. Rotation
// atomically swaps an old token for a new one, so a token can be redeemed at
// most once. Tokens are keyed by their fingerprint, raw tokens never reach a
// backend.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
)

// ErrNotRegistered is returned by Rotate when the old token is not currently
// valid, either never registered, already revoked, already rotated or expired.
var ErrNotRegistered = errors.New("registry: token not registered")

// Entry is the bookkeeping stored against a registered token.
type Entry struct {
	UserID    string
	ExpiresAt time.Time // zero means the token never expires
}

// Active reports whether an entry can still be redeemed at now.
func (e Entry) Active(now time.Time) bool {
	return e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt)
}

// Registry is the set of valid refresh tokens. Implementations must be safe
// for concurrent use and Rotate must be atomic: of N concurrent rotations of
// the same token exactly one succeeds.
type Registry interface {
	Register(ctx context.Context, token string, e Entry) error
	IsValid(ctx context.Context, token string) (bool, error)

	// Revoke is idempotent, revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error

	// Rotate revokes old and registers next in one step. If old is not
	// valid it returns ErrNotRegistered and next is not registered.
	Rotate(ctx context.Context, old, next string, e Entry) error

	// RevokeUser drops every token registered to userID.
	RevokeUser(ctx context.Context, userID string) error

	// Prune removes expired and revoked bookkeeping.
	Prune(ctx context.Context) error
}

func fingerprint(token string) string {
	return cryptox.FingerprintToken(token)
}
