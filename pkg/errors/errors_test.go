package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{Code: "NOT_FOUND", Message: "cart with id sess-1 not found"}
	assert.Equal(t, "NOT_FOUND: cart with id sess-1 not found", err.Error())
}

func TestAppError_ErrorIncludesSentinel(t *testing.T) {
	err := NotFound("cart", "sess-1")
	assert.Contains(t, err.Error(), "NOT_FOUND: cart with id sess-1 not found")
	assert.Contains(t, err.Error(), ErrNotFound.Error())
}

func TestAppError_ErrorWithWrapped(t *testing.T) {
	inner := errors.New("boom")
	err := Internal(inner)
	assert.Contains(t, err.Error(), "boom")
}

func TestAppError_Unwrap(t *testing.T) {
	err := NotFound("cart", "sess-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	err2 := InvalidInput("quantity must be positive")
	assert.True(t, errors.Is(err2, ErrInvalidInput))
}

func TestAppError_UnwrapThroughChain(t *testing.T) {
	err := fmt.Errorf("load cart: %w", NotFound("cart", "sess-1"))
	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"conflict", ErrConflict, http.StatusConflict},
		{"service unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("something"), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("ctx: %w", ErrNotFound), http.StatusNotFound},
		{"app error", Conflict("cart changed"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
