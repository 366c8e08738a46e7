package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code int

const (
	CodeInternal Code = iota
	CodeBadRequest
	CodeUnauthorized
	CodeNotFound
	// upstream failed in a way a retry may fix (rpc error, timeout, cache down)
	CodeTransient
	// deployment defect: chain or contract not configured
	CodeConfiguration
)

type AppError struct {
	Code    Code
	Message string
	Err     error
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

func newError(code Code, msg string, err error) *AppError {
	return &AppError{Code: code, Message: msg, Err: err}
}

func Internal(msg string) error {
	return newError(CodeInternal, msg, nil)
}

func BadRequest(msg string) error {
	return newError(CodeBadRequest, msg, nil)
}

func Unauthorized(msg string) error {
	return newError(CodeUnauthorized, msg, nil)
}

func NotFound(msg string) error {
	return newError(CodeNotFound, msg, nil)
}

func Configuration(msg string) error {
	return newError(CodeConfiguration, msg, nil)
}

// Transient wraps err as a retryable upstream failure.
func Transient(msg string, err error) error {
	return newError(CodeTransient, msg, err)
}

func codeOf(err error) (Code, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return CodeInternal, false
}

func IsTransient(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeTransient
}

func IsConfiguration(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeConfiguration
}

func IsBadRequest(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeBadRequest
}

// HTTPStatus maps an error to the status the rest layer answers with.
func HTTPStatus(err error) int {
	code, ok := codeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
