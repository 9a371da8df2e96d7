package announcement

import "errors"

var (
	ErrNotFound        = errors.New("announcement not found")
	ErrInvalidPriority = errors.New("invalid announcement priority")
	ErrForbidden       = errors.New("forbidden")
)
