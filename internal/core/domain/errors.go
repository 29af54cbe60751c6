package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrForbidden          = errors.New("access forbidden")
	ErrNotFound           = errors.New("record not found")
	ErrPasswordMismatch   = errors.New("current password is incorrect")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownEnum        = errors.New("unknown enum value")
)

// MinPasswordLength is enforced by both the API and the console form.
const MinPasswordLength = 6
