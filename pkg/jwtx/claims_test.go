package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewClaims(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	id := jwtx.Identity{UserID: "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", IsAdmin: true}

	c := jwtx.NewClaims(id, time.Minute, "auth-service", now)
	require.Equal(t, id, c.Identity())
	require.Equal(t, id.UserID, c.Subject, "sub mirrors the user id")
	require.Equal(t, "auth-service", c.Issuer)
	require.Equal(t, now, c.IssuedAt.Time)
	require.Equal(t, now.Add(time.Minute), c.ExpiresAtTime())
	require.NotEmpty(t, c.ID)

	// Same identity, same instant, still a distinct token.
	again := jwtx.NewClaims(id, time.Minute, "auth-service", now)
	require.NotEqual(t, c.ID, again.ID)

	t.Run("zero ttl never expires", func(t *testing.T) {
		c := jwtx.NewClaims(id, 0, "auth-service", now)
		require.Nil(t, c.ExpiresAt)
		require.True(t, c.ExpiresAtTime().IsZero())
		require.NoError(t, c.ValidateExpiryWithLeeway(0))
	})
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "auth-service"}}

	require.NoError(t, c.ValidateIssuer("auth-service"))
	require.NoError(t, c.ValidateIssuer(""), "an unset issuer enforces nothing")
	require.ErrorIs(t, c.ValidateIssuer("someone-else"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	access := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Audience: jwt.ClaimStrings{jwtx.AudienceAccess},
	}}

	t.Run("own audience", func(t *testing.T) {
		require.NoError(t, access.ValidateAudience([]string{jwtx.AudienceAccess}))
	})

	t.Run("any expected audience is enough", func(t *testing.T) {
		require.NoError(t, access.ValidateAudience([]string{jwtx.AudienceRefresh, jwtx.AudienceAccess}))
	})

	t.Run("other token kind", func(t *testing.T) {
		require.ErrorIs(t, access.ValidateAudience([]string{jwtx.AudienceRefresh}), jwtx.ErrAudience)
	})

	t.Run("no audience claim", func(t *testing.T) {
		bare := &jwtx.Claims{}
		require.ErrorIs(t, bare.ValidateAudience([]string{jwtx.AudienceAccess}), jwtx.ErrAudience)
	})

	t.Run("nothing expected", func(t *testing.T) {
		require.NoError(t, access.ValidateAudience(nil))
	})
}

func TestValidateExpiryWithLeeway(t *testing.T) {
	now := time.Now().UTC()
	at := func(exp, nbf time.Duration) *jwtx.Claims {
		c := &jwtx.Claims{}
		if exp != 0 {
			c.ExpiresAt = jwt.NewNumericDate(now.Add(exp))
		}
		if nbf != 0 {
			c.NotBefore = jwt.NewNumericDate(now.Add(nbf))
		}
		return c
	}

	require.NoError(t, at(time.Minute, 0).ValidateExpiryWithLeeway(0))
	require.NoError(t, at(-10*time.Second, 0).ValidateExpiryWithLeeway(30*time.Second), "inside leeway")
	require.ErrorIs(t, at(-2*time.Minute, 0).ValidateExpiryWithLeeway(30*time.Second), jwtx.ErrExpired)
	require.ErrorIs(t, at(0, time.Minute).ValidateExpiryWithLeeway(0), jwtx.ErrNotYetValid)
	require.NoError(t, at(0, 10*time.Second).ValidateExpiryWithLeeway(30*time.Second), "nbf inside leeway")
}
