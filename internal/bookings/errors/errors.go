package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrStatusChanged means a conditional status update matched nothing
	// because another request moved the booking first.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrLockHeld = errors.New("item booking lock is held")
)
