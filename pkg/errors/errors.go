// Package errors defines the sentinel errors shared by the search and index
// paths and maps them onto HTTP status codes for the API layer.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnknownClass          = errors.New("class is not full-text indexed")
	ErrIndexNotFound         = errors.New("full-text index not found")
	ErrUnspecifiedIndex      = errors.New("class is indexed by multiple full-text indexes")
	ErrUnknownFilterOperator = errors.New("unknown filter query operator")
	ErrStore                 = errors.New("index store failure")
	ErrTimeout               = errors.New("operation timed out")
	ErrInternal              = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Config builds a configuration error. Configuration errors are the
// caller's fault and surface as 400 responses.
func Config(sentinel error, format string, args ...any) *AppError {
	return Newf(sentinel, http.StatusBadRequest, format, args...)
}

// Store wraps a failed store round trip so callers can match ErrStore while
// the original cause stays reachable through errors.Is/As.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownClass), errors.Is(err, ErrIndexNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnspecifiedIndex),
		errors.Is(err, ErrUnknownFilterOperator):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
