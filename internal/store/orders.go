package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"store-backend/internal/apperr"
	"store-backend/internal/model"

	"github.com/google/uuid"
)

// CreateOrder insere um pedido vazio.
func (t *Tx) CreateOrder(ctx context.Context, userID int64, status string) (model.Order, error) {
	now := time.Now().UTC()
	o := model.Order{UserID: userID, Status: status, Items: []model.OrderItem{}, CreatedAt: now, UpdatedAt: now}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		o.UserID, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return model.Order{}, fmt.Errorf("order id: %w", err)
	}
	return o, nil
}

// CreateOrderItem persiste o item e chama os ganchos de criação na mesma
// transação. Um ID vazio recebe um UUID novo; um ID repetido falha com
// apperr.ErrDuplicateOrderItem.
func (t *Tx) CreateOrderItem(ctx context.Context, item model.OrderItem) (model.OrderItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO order_items (id, order_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
		item.ID, item.OrderID, item.ProductID, item.Quantity)
	if err != nil {
		if isConstraint(err, sqlite3ErrPrimaryKey, sqlite3ErrUnique) {
			return model.OrderItem{}, fmt.Errorf("order item %s: %w", item.ID, apperr.ErrDuplicateOrderItem)
		}
		if isConstraint(err, sqlite3ErrForeignKey) {
			return model.OrderItem{}, fmt.Errorf("order item %s references: %w", item.ID, apperr.ErrNotFound)
		}
		return model.OrderItem{}, fmt.Errorf("insert order item: %w", err)
	}

	for _, h := range t.hooks.OrderItemCreated {
		if err := h.OnOrderItemCreated(ctx, t, item); err != nil {
			return model.OrderItem{}, err
		}
	}
	return item, nil
}

// UpdateOrderStatus grava o novo status e chama os ganchos de atualização com
// o status anterior lido nesta mesma transação. Os ganchos rodam mesmo quando o
// status não muda; cabe a eles decidir se há transição.
func (t *Tx) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (model.StatusChange, error) {
	var prev string
	err := t.tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StatusChange{}, fmt.Errorf("order %d: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return model.StatusChange{}, fmt.Errorf("read order status %d: %w", orderID, err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), orderID); err != nil {
		return model.StatusChange{}, fmt.Errorf("update order %d: %w", orderID, err)
	}

	change := model.StatusChange{OrderID: orderID, Previous: prev, Current: status}
	for _, h := range t.hooks.OrderUpdated {
		if err := h.OnOrderUpdated(ctx, t, change); err != nil {
			return model.StatusChange{}, err
		}
	}
	return change, nil
}

// PlaceOrder transforma o carrinho do usuário em pedido: cria o pedido, um item
// por item do carrinho (cada um baixa estoque pelo gancho) e esvazia o
// carrinho. Tudo numa transação: se um item não tiver estoque, nada fica.
func (s *Store) PlaceOrder(ctx context.Context, userID int64) (model.Order, error) {
	var order model.Order
	err := s.InTx(ctx, func(tx *Tx) error {
		cart, err := getCart(ctx, tx.tx, `user_id = ?`, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return apperr.ErrCartEmpty
		}

		order, err = tx.CreateOrder(ctx, userID, model.StatusPending)
		if err != nil {
			return err
		}
		for _, ci := range cart.Items {
			item, err := tx.CreateOrderItem(ctx, model.OrderItem{
				OrderID:   order.ID,
				ProductID: ci.ProductID,
				Quantity:  ci.Quantity,
			})
			if err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cart.ID); err != nil {
			return fmt.Errorf("clear cart %d: %w", cart.ID, err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return s.GetOrder(ctx, userID, order.ID)
}

// SetOrderStatus atualiza o status de um pedido do usuário.
func (s *Store) SetOrderStatus(ctx context.Context, userID, orderID int64, status string) (model.Order, error) {
	if !model.ValidStatus(status) {
		return model.Order{}, fmt.Errorf("%q: %w", status, apperr.ErrInvalidStatus)
	}
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := ownsOrder(ctx, tx.tx, userID, orderID); err != nil {
			return err
		}
		_, err := tx.UpdateOrderStatus(ctx, orderID, status)
		return err
	})
	if err != nil {
		return model.Order{}, err
	}
	return s.GetOrder(ctx, userID, orderID)
}

// DeleteOrder remove um pedido do usuário com seus itens e pagamento. O
// estoque já baixado não volta.
func (s *Store) DeleteOrder(ctx context.Context, userID, orderID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ? AND user_id = ?`, orderID, userID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", orderID, apperr.ErrNotFound)
	}
	return nil
}

func ownsOrder(ctx context.Context, q querier, userID, orderID int64) error {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = ? AND user_id = ?`, orderID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %d: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("order owner %d: %w", orderID, err)
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM orders WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Items, err = orderItems(ctx, s.db, o.ID); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, userID, orderID int64) (model.Order, error) {
	var o model.Order
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id = ? AND user_id = ?`, orderID, userID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("order %d: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if o.Items, err = orderItems(ctx, s.db, o.ID); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func orderItems(ctx context.Context, q querier, orderID int64) ([]model.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.quantity,
		       p.id, p.name, p.description, p.price, p.stock, p.created_at
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ? ORDER BY oi.rowid`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	out := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		p := &model.Product{}
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Quantity,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.ProductID = p.ID
		it.Product = p
		out = append(out, it)
	}
	return out, rows.Err()
}
