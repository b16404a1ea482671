package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindAndStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     string
		status   int
		expected bool
	}{
		{"nil", nil, "", http.StatusOK, false},
		{"not found", ErrNotFound, "not_found", http.StatusNotFound, true},
		{"wrapped stock", fmt.Errorf("product 3: %w", ErrInsufficientStock), "insufficient_stock", http.StatusConflict, true},
		{"duplicate item", ErrDuplicateOrderItem, "duplicate_order_item", http.StatusConflict, true},
		{"cart empty", ErrCartEmpty, "cart_empty", http.StatusBadRequest, true},
		{"payment exists", ErrPaymentExists, "payment_exists", http.StatusBadRequest, true},
		{"invalid status", ErrInvalidStatus, "invalid_status", http.StatusBadRequest, true},
		{"product in use", fmt.Errorf("product 1: %w", ErrProductInUse), "product_in_use", http.StatusConflict, true},
		{"username taken", fmt.Errorf("username %q: %w", "ana", ErrUsernameTaken), "username_taken", http.StatusConflict, true},
		{"unauthenticated", ErrUnauthenticated, "unauthenticated", http.StatusUnauthorized, true},
		{"forbidden", ErrForbidden, "forbidden", http.StatusForbidden, true},
		{"timeout", context.DeadlineExceeded, "timeout", http.StatusGatewayTimeout, false},
		{"canceled", context.Canceled, "canceled", http.StatusBadRequest, true},
		{"unknown", errors.New("disk full"), "internal", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.kind {
				t.Fatalf("Kind = %q, want %q", got, tt.kind)
			}
			if got := HTTPStatus(tt.err); got != tt.status {
				t.Fatalf("HTTPStatus = %d, want %d", got, tt.status)
			}
			if got := Expected(tt.err); got != tt.expected {
				t.Fatalf("Expected = %v, want %v", got, tt.expected)
			}
		})
	}
}
