package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := InvalidInput("quantity must be positive")
	assert.Equal(t, "INVALID_INPUT: quantity must be positive", err.Error())

	wrapped := &AppError{Code: "X", Message: "failed", Err: errors.New("boom")}
	assert.Equal(t, "X: failed: boom", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, InvalidInput("bad"), ErrInvalidInput)
	assert.ErrorIs(t, NotFound("cart", "abc"), ErrNotFound)
	assert.ErrorIs(t, ShippingUnavailable("no carriers"), ErrShippingUnavailable)
	assert.ErrorIs(t, OrderRejected("address incomplete"), ErrOrderRejected)
	assert.ErrorIs(t, Conflict("busy"), ErrConflict)
}

func TestHTTPStatus_AppError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("order", "42")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("bad")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ShippingUnavailable("down")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(OrderRejected("no")))
}

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("fetch quote: %w", ErrShippingUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))

	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("save: %w", ErrConflict)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(base, "call commerce api")
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "call commerce api: connection refused", err.Error())
}
