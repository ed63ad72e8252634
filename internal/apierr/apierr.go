// Package apierr defines the typed errors handlers return to the error
// middleware. Each error carries a Code that decides the HTTP status, a public
// message, optional details and the wrapped cause.
package apierr

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUpstream     Code = "UPSTREAM_ERROR"
	CodeInternal     Code = "INTERNAL"
)

// HTTPStatus maps the code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type understood by middleware.ErrorHandler.
type Error struct {
	Code    Code
	Message string
	Details string
	Cause   error
	stack   []uintptr
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Stack renders the call stack captured when the error was built.
func (e *Error) Stack() string {
	if len(e.stack) == 0 {
		return ""
	}
	frames := runtime.CallersFrames(e.stack)
	var b strings.Builder
	for {
		f, more := frames.Next()
		b.WriteString(f.Function)
		b.WriteString("\n\t")
		b.WriteString(f.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
		b.WriteByte('\n')
		if !more {
			break
		}
	}
	return b.String()
}

func newError(code Code, message, details string, cause error) *Error {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return &Error{Code: code, Message: message, Details: details, Cause: cause, stack: pcs[:n]}
}

// Validation reports a bad request. The reason is exposed as details.
func Validation(reason string) *Error {
	return newError(CodeValidation, "Validation error", reason, nil)
}

// BadRequest reports a rejected request whose reason is the public message,
// for route-level checks such as a missing query parameter.
func BadRequest(message string) *Error {
	return newError(CodeValidation, message, "", nil)
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Unauthorized"
	}
	return newError(CodeUnauthorized, message, "", nil)
}

// Forbidden reports an authenticated caller lacking permission.
func Forbidden(message string) *Error {
	if message == "" {
		message = "Insufficient permissions"
	}
	return newError(CodeForbidden, message, "", nil)
}

// NotFound reports a missing resource.
func NotFound(message string) *Error {
	return newError(CodeNotFound, message, "", nil)
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return newError(CodeConflict, message, "", nil)
}

// Upstream reports a failure of an external dependency such as the AI provider.
func Upstream(message string, cause error) *Error {
	return newError(CodeUpstream, message, "", cause)
}

// Internal wraps an unexpected failure. The cause is logged, never returned
// to the client.
func Internal(message string, cause error) *Error {
	return newError(CodeInternal, message, "", cause)
}

// As extracts an *Error from err, wrapping unknown errors as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: "Internal Server Error", Cause: err}
}

// Sentinels for errors.Is checks against a code.
var (
	ErrNotFound = &Error{Code: CodeNotFound}
	ErrConflict = &Error{Code: CodeConflict}
)
