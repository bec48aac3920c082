package service

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")

	// ErrStoreUnavailable wraps any backend failure the caller can't act on.
	ErrStoreUnavailable = errors.New("store_unavailable")
)
