// Package apperr define os erros esperados do domínio e como eles viram
// status HTTP. Qualquer outro erro é falha não tratada.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrDuplicateOrderItem = errors.New("order item already processed")
	ErrCartEmpty          = errors.New("Cart is empty")
	ErrPaymentExists      = errors.New("Payment already exists")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrProductInUse       = errors.New("Product is referenced by existing orders.")
	ErrUsernameTaken      = errors.New("A user with that username already exists.")
	ErrUnauthenticated    = errors.New("Authentication credentials were not provided.")
	ErrForbidden          = errors.New("You do not have permission to perform this action.")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"

	case errors.Is(err, ErrDuplicateOrderItem):
		return "duplicate_order_item"

	case errors.Is(err, ErrCartEmpty):
		return "cart_empty"

	case errors.Is(err, ErrPaymentExists):
		return "payment_exists"

	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"

	case errors.Is(err, ErrProductInUse):
		return "product_in_use"

	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"

	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"

	case errors.Is(err, ErrForbidden):
		return "forbidden"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// Expected informa se o erro é uma violação de regra conhecida (resposta 4xx),
// e não uma falha.
func Expected(err error) bool {
	switch Kind(err) {
	case "", "internal", "timeout":
		return false
	default:
		return true
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrDuplicateOrderItem),
		errors.Is(err, ErrProductInUse),
		errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict

	case errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrPaymentExists),
		errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest

	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
