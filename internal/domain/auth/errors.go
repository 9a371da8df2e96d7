package auth

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMFARequired         = errors.New("mfa code required")
	ErrMFAInvalid          = errors.New("invalid mfa code")
	ErrMFAUnavailable      = errors.New("mfa requires encryption key")
	ErrMFANotSetUp         = errors.New("mfa setup required")
	ErrInvalidResetToken   = errors.New("invalid or expired token")
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrEmailTaken          = errors.New("email already in use")
	ErrRoleNotFound        = errors.New("role not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("forbidden")
)

// IdentityError reports why a user identity could not be created.
type IdentityError struct {
	Reasons []string
}

func (e *IdentityError) Error() string {
	return "identity creation failed: " + strings.Join(e.Reasons, "; ")
}

func identityFailure(reasons ...string) error {
	return &IdentityError{Reasons: reasons}
}
