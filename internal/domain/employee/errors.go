package employee

import "errors"

var (
	ErrNotFound          = errors.New("employee not found")
	ErrDuplicateNumber   = errors.New("employee number already exists")
	ErrUserAlreadyLinked = errors.New("user already linked to an employee")
	ErrInvalidReference  = errors.New("department or position does not exist")
	ErrNotLinked         = errors.New("no employee record for this user")
	ErrForbidden         = errors.New("forbidden")
)
