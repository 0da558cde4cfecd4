package auth

import "errors"

var (
	// ErrAuthenticationFailed covers every QR login rejection. The cause (bad
	// signature, expiry, missing claims) is never exposed to callers.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrUnauthorized means the bearer token is not, or no longer, valid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionInvalidated means a newer login superseded the session.
	ErrSessionInvalidated = errors.New("session invalidated")
)
