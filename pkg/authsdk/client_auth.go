package authsdk

import (
	"context"
	"net/http"
)

// Register creates an account.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	var msg MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/register", req, &msg, http.StatusCreated); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Login exchanges credentials for a token pair.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var login LoginResponse
	req := LoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", req, &login, http.StatusOK); err != nil {
		return nil, err
	}
	return &login, nil
}

// Refresh redeems refreshToken for a new pair. refreshToken is no longer valid
// afterwards, use the returned one.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var pair TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/refresh", TokenRequest{Token: refreshToken}, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout revokes refreshToken. It succeeds for unknown tokens too.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	var msg MessageResponse
	return c.doJSON(ctx, http.MethodPost, "/api/logout", TokenRequest{Token: refreshToken}, &msg, http.StatusOK)
}

// DeleteUser deletes userID using accessToken. Prefer Session.DeleteUser,
// which handles refresh.
func (c *SDKClient) DeleteUser(ctx context.Context, accessToken, userID string) error {
	resp, err := c.doAuthRequest(ctx, accessToken, http.MethodDelete, "/api/users/"+userID, nil)
	if err != nil {
		return err
	}
	var msg MessageResponse
	return decodeJSON(resp, &msg, http.StatusOK)
}
