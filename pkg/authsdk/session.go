package authsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoRefreshToken is returned when the access token has expired and the
// session has nothing to refresh it with.
var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// Session is an authenticated session with automatic token refresh. Before
// each request it checks the access token's exp and, when it is about to run
// out, rotates the refresh token for a new pair.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time // zero when the access token carries no exp
	userID       string
	isAdmin      bool
}

// sessionClaims is the part of the access token the client cares about. The
// token is not verified here, the server does that.
type sessionClaims struct {
	UserID  string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// setTokens must be called with mu held for writing, or before the session
// is shared.
func (s *Session) setTokens(accessToken, refreshToken string) {
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.expiresAt = time.Time{}

	var claims sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return
	}
	s.userID = claims.UserID
	s.isAdmin = claims.IsAdmin
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time.Add(-s.client.RefreshBuffer)
	}
}

func (s *Session) fresh(now time.Time) bool {
	return s.expiresAt.IsZero() || now.Before(s.expiresAt)
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.fresh(time.Now()) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if s.fresh(time.Now()) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return ErrNoRefreshToken
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	s.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

// Refresh rotates the token pair now, regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// Logout revokes the session's refresh token. The session can't refresh
// afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.refreshToken = ""
	s.mu.Unlock()

	if refreshToken == "" {
		return ErrNoRefreshToken
	}
	return s.client.Logout(ctx, refreshToken)
}

// DeleteUser deletes userID. Non-admin sessions may only delete themselves.
func (s *Session) DeleteUser(ctx context.Context, userID string) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	return s.client.DeleteUser(ctx, token, userID)
}

// DeleteSelf deletes the session's own account and drops its tokens.
func (s *Session) DeleteSelf(ctx context.Context) error {
	if err := s.DeleteUser(ctx, s.UserID()); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken = "", ""
	s.mu.Unlock()
	return nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// UserID is the id claim of the current access token.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// IsAdmin is the isAdmin claim of the current access token.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAdmin
}
