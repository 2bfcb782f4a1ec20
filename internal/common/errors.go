// Package common defines shared constants and sentinel errors used across
// client and server layers of ResDex. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Access errors.
	ErrorPermissionDenied = errors.New("permission denied")
	ErrorUnauthorized     = errors.New("unauthorized")

	// Remote store or network failure. Never retried automatically.
	ErrorRemoteUnavailable = errors.New("remote unavailable")

	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
