package errors

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidInterval = "INVALID_INTERVAL"
	CodeInvalidState    = "INVALID_STATE"
	CodeForbidden       = "FORBIDDEN"
	CodeNoAccess        = "NO_ACCESS"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// Reason refines a NotFound. Both reasons reach the wire identically.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonAbsent       Reason = "absent"
	ReasonUnauthorized Reason = "unauthorized"
)

// AppError is transport agnostic; pkg/http maps Code to a status.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Reason  Reason         `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Reason:  ReasonAbsent,
	}
}

func NotFoundWithID(resource string, id int64) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id %d not found", resource, id),
		Reason:  ReasonAbsent,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

// Masked reports an entity the caller may not see. The message matches
// NotFoundWithID so the wire format does not leak existence.
func Masked(resource string, id int64) *AppError {
	err := NotFoundWithID(resource, id)
	err.Reason = ReasonUnauthorized
	return err
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message}
}

func InvalidInput(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message}
}

func InvalidInterval(message string) *AppError {
	return &AppError{Code: CodeInvalidInterval, Message: message}
}

func InvalidState(message string) *AppError {
	return &AppError{Code: CodeInvalidState, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NoAccess(message string) *AppError {
	return &AppError{Code: CodeNoAccess, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func Internal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}

func Timeout(message string) *AppError {
	return &AppError{Code: CodeTimeout, Message: message}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:    CodeUnavailable,
		Message: fmt.Sprintf("%s is temporarily unavailable", service),
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func ReasonOf(err error) Reason {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ReasonNone
}
