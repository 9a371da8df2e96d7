package leave

import "errors"

var (
	ErrNotFound          = errors.New("leave request not found")
	ErrInvalidTransition = errors.New("leave request is no longer pending")
	ErrInvalidDateRange  = errors.New("end date before start date")
	ErrUnknownType       = errors.New("unknown leave type")
	ErrForbidden         = errors.New("forbidden")
	ErrNotLinked         = errors.New("no employee record for this user")
	ErrInactiveEmployee  = errors.New("employee is not active")
	ErrNotApproved       = errors.New("leave slip is only available for approved requests")
)
