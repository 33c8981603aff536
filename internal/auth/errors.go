package auth

import "errors"

// Sentinel kinds for auth errors.
var (
	ErrSessionExpired  = errors.New("session expired, please refresh")
	ErrUnauthenticated = errors.New("authentication required")
)
