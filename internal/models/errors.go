package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError and returned in ErrorResponse.Code.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeDeleteDenied = "DELETE_DENIED"
	CodeInternal     = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeValidation:   fiber.StatusBadRequest,
	CodeNotFound:     fiber.StatusNotFound,
	CodeUnauthorized: fiber.StatusUnauthorized,
	CodeDeleteDenied: fiber.StatusForbidden,
	CodeInternal:     fiber.StatusInternalServerError,
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError is an error with a user-facing message and a stable code. Err,
// when set, is the cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s with ID %v not found", resource, id)}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewDeleteDeniedError is returned when a delete removed nothing, which is
// how a blocking delete policy shows up.
func NewDeleteDeniedError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeDeleteDenied,
		Message: fmt.Sprintf("Delete was blocked. A policy change is required to delete %ss.", resource),
		Err:     fmt.Errorf("%s %v: zero rows affected", resource, id),
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// StatusFor maps err to an HTTP status. Anything that is not an AppError
// with a known code is a 500.
func StatusFor(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, ok := statusByCode[appErr.Code]; ok {
			return status
		}
	}
	return fiber.StatusInternalServerError
}

// RespondWithError writes err as an ErrorResponse. Causes of internal errors
// stay out of the body.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
	}

	body := ErrorResponse{Error: appErr.Message, Code: appErr.Code}
	if appErr.Err != nil && appErr.Code != CodeInternal {
		body.Details = appErr.Err.Error()
	}
	return c.Status(status).JSON(body)
}
