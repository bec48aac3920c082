package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. These can be overridden per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens. Kept
	// very short because access tokens are never tracked server side.
	DefaultAccessTokenTTL = 20 * time.Second

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Rotation slides the window forward on every refresh.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Identity is the identity claim carried by both token kinds. It is fixed at
// issue time, changing a user's admin flag only takes effect on tokens
// minted after the change.
type Identity struct {
	UserID  string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
}

// Claims are the JWT claims for both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims

	// UserID of the authenticated user, mirrored into "sub".
	UserID string `json:"id"`

	// IsAdmin grants cross-user actions such as deleting other users.
	IsAdmin bool `json:"isAdmin"`
}

// Identity returns the identity claim.
func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, IsAdmin: c.IsAdmin}
}

// NewClaims builds minimally-correct claims. A ttl of zero leaves "exp"
// unset which yields a token that never expires on its own.
func NewClaims(id Identity, ttl time.Duration, issuer string, now time.Time) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  id.UserID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       NewJTI(),
		},
		UserID:  id.UserID,
		IsAdmin: id.IsAdmin,
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return c
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two tokens
// for the same user minted in the same second still differ because of it.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ExpiresAtTime returns the expiry as a time, zero if the token has none.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present. The
// issuer stamps each token kind with its own audience.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiryWithLeeway ensures the token hasn't expired (exp) and isn't
// before nbf, allowing leeway for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
