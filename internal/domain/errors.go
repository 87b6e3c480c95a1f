package domain

import "errors"

// Sentinel errors produced by the identity core. Handlers map these to
// stable HTTP statuses; anything else is wrapped as an internal error.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserInactive  = errors.New("user is not active")
	ErrUserProtected = errors.New("user is protected")
	ErrInvalidOTP    = errors.New("invalid or expired otp")
	ErrDuplicateUser = errors.New("mobile or email already registered")
	ErrUnknownRole   = errors.New("unknown role")
)
