package http

import (
	"fmt"
	"net/http"
)

// Error codes carried in AppError.Code.
const (
	CodeNotFound    = "ERR_NOT_FOUND"
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeUnavailable = "ERR_UNAVAILABLE"
	CodeInternal    = "ERR_INTERNAL"
)

// AppError is an error that knows its HTTP status. Err is logged, never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithError attaches the cause.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError(CodeNotFound, "", fmt.Sprintf(format, a...), http.StatusNotFound)
}

func BadRequestError(field, message string) *AppError {
	return NewAppError(CodeBadRequest, field, message, http.StatusBadRequest)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(CodeRateLimited, "", message, http.StatusTooManyRequests)
}

func UnavailableError(message string) *AppError {
	return NewAppError(CodeUnavailable, "", message, http.StatusServiceUnavailable)
}

// InternalError creates a 500 error. The message is shown to clients as is.
func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}
