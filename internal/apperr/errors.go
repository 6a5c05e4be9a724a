// Package apperr defines the typed failure returned by every ledger
// operation. Callers branch on Code; HTTP handlers use HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeScheduleInput     = "SCHEDULE_INPUT_INVALID"
	CodeNotFound          = "NOT_FOUND"
	CodeExpired           = "EXPIRED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeAlreadySettled    = "MILESTONE_ALREADY_SETTLED"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

type Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func Validation(message string, details map[string]any) *Error {
	return &Error{Code: CodeValidation, Message: message, HTTPStatus: http.StatusUnprocessableEntity, Details: details}
}

// ScheduleInput reports a booking whose price or dates cannot produce a
// schedule.
func ScheduleInput(message string, err error) *Error {
	return &Error{Code: CodeScheduleInput, Message: message, HTTPStatus: http.StatusUnprocessableEntity, Err: err}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource), HTTPStatus: http.StatusNotFound}
}

func NotFoundWithID(resource string, id any) *Error {
	return NotFound(resource).WithDetails(map[string]any{"resource": resource, "id": id})
}

// Expired is kept apart from NotFound so clients can render a stale link
// differently from an invalid one.
func Expired(message string) *Error {
	return &Error{Code: CodeExpired, Message: message, HTTPStatus: http.StatusGone}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

func AlreadySettled(milestoneID uint64) *Error {
	return &Error{
		Code:       CodeAlreadySettled,
		Message:    "milestone is already paid",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"milestone_id": milestoneID},
	}
}

func InvalidTransition(status string) *Error {
	return &Error{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("invalid payment status %q", status),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"status": status},
	}
}

func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// As returns err as *Error, wrapping anything unknown as an internal error.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("an unexpected error occurred", err)
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
