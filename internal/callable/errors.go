package callable

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Code is the short error code string returned to clients.
type Code string

const (
	CodeUnauthenticated    Code = "unauthenticated"
	CodePermissionDenied   Code = "permission-denied"
	CodeInvalidArgument    Code = "invalid-argument"
	CodeNotFound           Code = "not-found"
	CodeAlreadyExists      Code = "already-exists"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeResourceExhausted  Code = "resource-exhausted"
	CodeInternal           Code = "internal"
)

// Error is an expected, client-visible failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(message string) *Error    { return New(CodeUnauthenticated, message) }
func PermissionDenied(message string) *Error   { return New(CodePermissionDenied, message) }
func InvalidArgument(message string) *Error    { return New(CodeInvalidArgument, message) }
func NotFound(message string) *Error           { return New(CodeNotFound, message) }
func AlreadyExists(message string) *Error      { return New(CodeAlreadyExists, message) }
func FailedPrecondition(message string) *Error { return New(CodeFailedPrecondition, message) }
func ResourceExhausted(message string) *Error  { return New(CodeResourceExhausted, message) }
func Internal(message string) *Error           { return New(CodeInternal, message) }

// From converts any error into a client-visible *Error. Errors that are not
// already typed become internal with a generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return Internal("Internal server error")
}

// IsCode reports whether err is a typed error with the given code.
func IsCode(err error, code Code) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case CodePermissionDenied:
		return fiber.StatusForbidden
	case CodeInvalidArgument:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeAlreadyExists:
		return fiber.StatusConflict
	case CodeFailedPrecondition:
		return fiber.StatusPreconditionFailed
	case CodeResourceExhausted:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
