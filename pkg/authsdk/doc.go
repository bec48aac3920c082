/*
Package authsdk provides a client SDK for the session auth service.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: the public endpoints (register, login, refresh, logout, health)
  - Session: authenticated operations with automatic token refresh

Create an SDKClient to talk to the service:

	client := authsdk.NewSDKClient("http://localhost:5000")

	// Check service health
	health, err := client.Health(ctx)

	// Create an account and log in
	_, err = client.Register(ctx, authsdk.RegisterRequest{Username: "alice", Password: "pw1"})
	session, err := client.AuthenticateWithPassword(ctx, "alice", "pw1")

# Automatic Token Refresh

Access tokens are short lived (20 seconds by default). Before every request a
Session reads the exp claim of its access token and, when it is within
RefreshBuffer of expiring, redeems the refresh token for a new pair. Refresh
tokens rotate: the old one stops working as soon as the new pair is issued, so
a Session always keeps the latest one.

# Error Handling

Every error response of the service is returned as an *APIError carrying the
HTTP status, the error code and the description. The predefined values can be
matched with errors.Is:

	err := session.DeleteUser(ctx, otherID)
	if errors.Is(err, authsdk.ErrForbidden) {
		// only admins may delete other users
	}

# Thread Safety

Sessions are safe for concurrent use. Concurrent requests that find the access
token expired refresh it once, the others wait and reuse the new token.
*/
package authsdk
