package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown login ids, wrong
	// passwords and inactive accounts alike, so callers cannot probe which
	// identities exist.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken covers malformed tokens, bad signatures and claim
	// mismatches.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired is returned when an otherwise valid token is past its
	// expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)
