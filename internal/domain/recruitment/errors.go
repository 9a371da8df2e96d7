package recruitment

import "errors"

var (
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("invalid application status transition")
	ErrUnknownStatus     = errors.New("unknown application status")
	ErrForbidden         = errors.New("forbidden")
)
