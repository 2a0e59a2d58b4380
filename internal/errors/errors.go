// internal/errors/errors.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Sentinel errors for the core taxonomy. Services wrap these with
// context via %w so handlers can map them to HTTP statuses.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFound wraps ErrNotFound with a message.
func NotFound(msg string) error { return fmt.Errorf("%w: %s", ErrNotFound, msg) }

// Forbidden wraps ErrForbidden with a message.
func Forbidden(msg string) error { return fmt.Errorf("%w: %s", ErrForbidden, msg) }

// Conflict wraps ErrConflict with a message.
func Conflict(msg string) error { return fmt.Errorf("%w: %s", ErrConflict, msg) }

// InvalidArgument wraps ErrInvalidArgument with a message.
// Use this in the service layer for bad input validation.
func InvalidArgument(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidArgument, msg) }

// HTTPStatus converts repo/infra/domain errors into an HTTP status code.
// Keeps handlers clean by centralizing error mapping.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict

	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return 499 // client closed request

	default:
		return http.StatusInternalServerError
	}
}
