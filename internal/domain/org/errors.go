package org

import "errors"

var (
	ErrDepartmentNotFound = errors.New("department not found")
	ErrPositionNotFound   = errors.New("position not found")
	ErrDuplicateName      = errors.New("department name already exists")
	ErrInUse              = errors.New("record is referenced by employees")
	ErrForbidden          = errors.New("forbidden")
)
