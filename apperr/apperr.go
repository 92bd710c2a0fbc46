package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrEmptyCart  = errors.New("the cart is empty")
	ErrConflict   = errors.New("conflict")
	ErrSignature  = errors.New("signature verification failed")
	ErrGateway    = errors.New("payment gateway error")

	// ErrRetry marks webhook failures the gateway should redeliver later.
	ErrRetry = errors.New("not found, retry")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Gateway(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrGateway, err)
}

func Signature(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSignature, err)
}

// Retry wraps err so IsRetry reports true while the original kind stays visible.
func Retry(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetry, err)
}

func IsRetry(err error) bool {
	return errors.Is(err, ErrRetry)
}

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrRetry):
		return "retry"

	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"

	case errors.Is(err, ErrValidation):
		return "validation"

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrConflict):
		return "conflict"

	case errors.Is(err, ErrSignature):
		return "signature"

	case errors.Is(err, ErrGateway):
		return "gateway"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrSignature):
		return http.StatusBadRequest

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrConflict):
		return http.StatusConflict

	case errors.Is(err, ErrGateway):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
