package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: Validationf("billing_address_id is required"), want: "validation"},
		{name: "empty_cart", err: fmt.Errorf("cart c1: %w", ErrEmptyCart), want: "empty_cart"},
		{name: "not_found", err: NotFoundf("cart %s", "c1"), want: "not_found"},
		{name: "retry_wins_over_not_found", err: Retry(NotFoundf("customer")), want: "retry"},
		{name: "conflict", err: Conflictf("gateway customer id"), want: "conflict"},
		{name: "signature", err: Signature(errors.New("bad header")), want: "signature"},
		{name: "gateway", err: Gateway(errors.New("stripe down")), want: "gateway"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "unknown", err: errors.New("boom"), want: "internal"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "validation", err: Validationf("x"), want: http.StatusBadRequest},
		{name: "empty_cart", err: ErrEmptyCart, want: http.StatusBadRequest},
		{name: "signature", err: Signature(errors.New("x")), want: http.StatusBadRequest},
		{name: "not_found", err: NotFoundf("cart"), want: http.StatusNotFound},
		{name: "conflict", err: Conflictf("x"), want: http.StatusConflict},
		{name: "gateway", err: Gateway(errors.New("x")), want: http.StatusBadGateway},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "unknown", err: errors.New("x"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestRetryKeepsUnderlyingKind(t *testing.T) {
	err := Retry(NotFoundf("customer for account 7"))

	assert.True(t, IsRetry(err))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsRetry(NotFoundf("cart")))
	assert.Nil(t, Retry(nil))
}
