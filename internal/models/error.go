package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Token errors
	ErrInvalidToken = errors.New("invalid or expired token")

	// Password errors
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrBreachedPassword = errors.New("password found in a known breach")
)
