// Package model contém os tipos da loja: catálogo, carrinho, pedido e pagamento.
package model

import "time"

// Status de pedido.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var orderStatuses = map[string]struct{}{
	StatusPending:   {},
	StatusConfirmed: {},
	StatusShipped:   {},
	StatusCompleted: {},
	StatusCancelled: {},
}

func ValidStatus(s string) bool {
	_, ok := orderStatuses[s]
	return ok
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Token    string `json:"-"`
	Staff    bool   `json:"is_staff"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
}

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

type CartItem struct {
	ID        int64   `json:"id"`
	CartID    int64   `json:"-"`
	ProductID int64   `json:"-"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem é imutável depois de criado. ID identifica o evento de criação:
// repetir a criação com o mesmo ID não baixa o estoque de novo.
type OrderItem struct {
	ID        string   `json:"id"`
	OrderID   int64    `json:"-"`
	ProductID int64    `json:"-"`
	Product   *Product `json:"product,omitempty"`
	Quantity  int      `json:"quantity"`
}

type Payment struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order"`
	Amount    float64   `json:"amount"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusChange é o que o gancho de atualização de pedido recebe.
type StatusChange struct {
	OrderID  int64
	Previous string
	Current  string
}

// Completed informa se a mudança é uma transição PARA "completed".
func (c StatusChange) Completed() bool {
	return c.Previous != StatusCompleted && c.Current == StatusCompleted
}
