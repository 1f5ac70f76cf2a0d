package errors

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	ErrDuplicateEmail = errors.New("user email already exists")
)
