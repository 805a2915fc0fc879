// Package apperr defines the application error taxonomy shared by every layer.
//
// Each failure kind has a stable numeric code, a default human-readable
// message and an HTTP status. Clients branch on the numeric code, so existing
// entries must never be renumbered or remapped.
//
// Services return *Error values; the HTTP boundary is the only place that
// consults HTTPStatus to pick the response status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code int

const (
	// Server / transport
	CodeServerError  Code = 2000
	CodeUnauthorized Code = 2001
	CodeForbidden    Code = 2002
	CodeNotFound     Code = 2003
	CodeConflict     Code = 2004
	CodeValidation   Code = 2005
	CodeRateLimited  Code = 2006

	// Business
	CodeTodoNotFound         Code = 3001
	CodeTodoAlreadyCompleted Code = 3002
	CodeTodoTitleEmpty       Code = 3003
	CodeTodoLimitExceeded    Code = 3004
)

type descriptor struct {
	message string
	status  int
}

var table = map[Code]descriptor{
	CodeServerError:          {"Internal server error", http.StatusInternalServerError},
	CodeUnauthorized:         {"Unauthorized - Invalid or missing API key", http.StatusUnauthorized},
	CodeForbidden:            {"Forbidden - Access denied", http.StatusForbidden},
	CodeNotFound:             {"Resource not found", http.StatusNotFound},
	CodeConflict:             {"Resource already exists", http.StatusConflict},
	CodeValidation:           {"Validation failed", http.StatusUnprocessableEntity},
	CodeRateLimited:          {"Too many requests", http.StatusTooManyRequests},
	CodeTodoNotFound:         {"Todo not found", http.StatusNotFound},
	CodeTodoAlreadyCompleted: {"Todo is already completed", http.StatusBadRequest},
	CodeTodoTitleEmpty:       {"Todo title cannot be empty", http.StatusBadRequest},
	CodeTodoLimitExceeded:    {"Maximum todo limit reached", http.StatusBadRequest},
}

// HTTPStatus returns the HTTP status for code. Unknown codes map to 400.
func HTTPStatus(code Code) int {
	if d, ok := table[code]; ok {
		return d.status
	}
	return http.StatusBadRequest
}

// DefaultMessage returns the default message for code, or "" when unknown.
func DefaultMessage(code Code) string {
	return table[code].message
}

// Error is a taxonomy-coded failure.
//
// Details carries free-text diagnostic context. Fields carries a structured
// per-field breakdown and is only set for request validation failures.
type Error struct {
	Code    Code
	Message string
	Details string
	Fields  map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code, so sentinel-style checks work:
//
//	errors.Is(err, apperr.New(apperr.CodeTodoNotFound, ""))
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithFields attaches a field → message breakdown and returns e.
func (e *Error) WithFields(fields map[string]any) *Error {
	e.Fields = fields
	return e
}

// Status is shorthand for HTTPStatus(e.Code).
func (e *Error) Status() int { return HTTPStatus(e.Code) }

// New builds an Error with the default message for code.
func New(code Code, details string) *Error {
	return &Error{Code: code, Message: DefaultMessage(code), Details: details}
}

// Newf is New with a formatted details string.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Constructors per kind.

func Internal(details string) *Error     { return New(CodeServerError, details) }
func Unauthorized(details string) *Error { return New(CodeUnauthorized, details) }
func Forbidden(details string) *Error    { return New(CodeForbidden, details) }
func NotFound(details string) *Error     { return New(CodeNotFound, details) }
func Conflict(details string) *Error     { return New(CodeConflict, details) }
func Validation(details string) *Error   { return New(CodeValidation, details) }
func RateLimited(details string) *Error  { return New(CodeRateLimited, details) }

// TodoNotFound reports a missing todo, naming the id in details.
func TodoNotFound(id string) *Error {
	return Newf(CodeTodoNotFound, "Todo with id '%s' not found", id)
}

func TodoAlreadyCompleted(details string) *Error { return New(CodeTodoAlreadyCompleted, details) }
func TodoTitleEmpty(details string) *Error       { return New(CodeTodoTitleEmpty, details) }

// TodoLimitExceeded reports the creation ceiling together with the current count.
func TodoLimitExceeded(limit int, current int64) *Error {
	return Newf(CodeTodoLimitExceeded, "Maximum of %d todos allowed. Current count: %d", limit, current)
}

// From converts err into an *Error. A nil err yields nil; errors outside the
// taxonomy become ServerError with the fault's description as details.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err.Error())
}

// CodeOf returns the taxonomy code of err (ServerError for foreign errors).
func CodeOf(err error) Code {
	if e := From(err); e != nil {
		return e.Code
	}
	return 0
}

// Response is the JSON error envelope. Unset details/errors are omitted.
type Response struct {
	// Stable, machine-readable code
	Code int `json:"code" example:"3001"`
	// Human-readable message
	Message string `json:"message" example:"Todo not found"`
	// Free-text diagnostic context
	Details string `json:"details,omitempty" example:"Todo with id '42' not found"`
	// Field-level validation failures
	Errors map[string]any `json:"errors,omitempty"`
}

// Response renders e as the wire envelope.
func (e *Error) Response() Response {
	return Response{
		Code:    int(e.Code),
		Message: e.Message,
		Details: e.Details,
		Errors:  e.Fields,
	}
}
