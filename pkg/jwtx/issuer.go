package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audiences written into "aud". Access and refresh verifiers each require
// their own, on top of the separate secrets.
const (
	AudienceAccess  = "access"
	AudienceRefresh = "refresh"
)

// Pair is a freshly minted access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string

	// RefreshExpiresAt is zero when the refresh token has no expiry.
	RefreshExpiresAt time.Time
}

// Issuer mints access and refresh tokens for an identity. Access and refresh
// tokens are signed with different signers so one kind can never be replayed
// as the other. The issuer is stateless, it never looks at the registry.
type Issuer struct {
	Access  Signer
	Refresh Signer

	// Name is written into "iss".
	Name string

	AccessTTL  time.Duration
	RefreshTTL time.Duration // zero means refresh tokens never expire

	// Now is overridable for tests.
	Now func() time.Time
}

// NewIssuer builds an Issuer from the two secrets. The secrets must differ.
func NewIssuer(accessSecret, refreshSecret []byte, name string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("jwtx: access and refresh secrets must differ")
	}

	access, err := NewSignerHS256(accessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := NewSignerHS256(refreshSecret)
	if err != nil {
		return nil, err
	}

	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	return &Issuer{
		Access:     access,
		Refresh:    refresh,
		Name:       name,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueAccess mints a short-lived access token.
func (i *Issuer) IssueAccess(id Identity) (string, error) {
	claims := NewClaims(id, i.AccessTTL, i.Name, i.Now())
	claims.Audience = jwt.ClaimStrings{AudienceAccess}
	return i.Access.Sign(claims)
}

// IssueRefresh mints a refresh token and reports its expiry.
func (i *Issuer) IssueRefresh(id Identity) (string, time.Time, error) {
	claims := NewClaims(id, i.RefreshTTL, i.Name, i.Now())
	claims.Audience = jwt.ClaimStrings{AudienceRefresh}
	token, err := i.Refresh.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAtTime(), nil
}

// IssuePair mints both tokens for id.
func (i *Issuer) IssuePair(id Identity) (Pair, error) {
	access, err := i.IssueAccess(id)
	if err != nil {
		return Pair{}, err
	}
	refresh, exp, err := i.IssueRefresh(id)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh, RefreshExpiresAt: exp}, nil
}
