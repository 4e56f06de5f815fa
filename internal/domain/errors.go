package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrWeakPassword         = errors.New("password does not meet policy")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrTooManyAttempts      = errors.New("too many attempts")
	ErrInvalidToken         = errors.New("invalid token")
	ErrRevoked              = errors.New("token revoked")
	ErrDeliveryFailed       = errors.New("delivery failed")
	ErrBadRequest           = errors.New("bad request")
	ErrForbidden            = errors.New("forbidden")
)
