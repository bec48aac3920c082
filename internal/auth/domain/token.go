package domain

import "time"

// TokenPair is what login and refresh hand back, a short-lived access token
// and a registry-tracked refresh token. Both are signed JWTs.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken models the stored refresh token record in the DB.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string    // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time // zero means the token never expires
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the record can still be redeemed at now.
func (t RefreshToken) Active(now time.Time) bool {
	if t.Revoked {
		return false
	}
	return t.ExpiresAt.IsZero() || now.Before(t.ExpiresAt)
}
