package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"store-backend/internal/apperr"
	"store-backend/internal/model"
)

func (s *Store) CreateCart(ctx context.Context, userID int64) (model.Cart, error) {
	c := model.Cart{UserID: userID, Items: []model.CartItem{}, CreatedAt: time.Now().UTC()}
	res, err := s.db.ExecContext(ctx, `INSERT INTO carts (user_id, created_at) VALUES (?, ?)`, c.UserID, c.CreatedAt)
	if err != nil {
		return model.Cart{}, fmt.Errorf("insert cart: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return model.Cart{}, fmt.Errorf("cart id: %w", err)
	}
	return c, nil
}

func (s *Store) ListCarts(ctx context.Context, userID int64) ([]model.Cart, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, created_at FROM carts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	var carts []model.Cart
	for rows.Next() {
		var c model.Cart
		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Cart, 0, len(carts))
	for _, c := range carts {
		if c.Items, err = cartItems(ctx, s.db, c.ID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// GetCart só devolve carrinhos do próprio usuário; os demais são "not found".
func (s *Store) GetCart(ctx context.Context, userID, cartID int64) (model.Cart, error) {
	return getCart(ctx, s.db, `id = ? AND user_id = ?`, cartID, userID)
}

func getCart(ctx context.Context, q querier, where string, args ...any) (model.Cart, error) {
	var c model.Cart
	err := q.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM carts WHERE `+where+` ORDER BY id LIMIT 1`, args...).
		Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cart{}, fmt.Errorf("cart: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	if c.Items, err = cartItems(ctx, q, c.ID); err != nil {
		return model.Cart{}, err
	}
	return c, nil
}

func cartItems(ctx context.Context, q querier, cartID int64) ([]model.CartItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.quantity,
		       p.id, p.name, p.description, p.price, p.stock, p.created_at
		FROM cart_items ci JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ? ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	defer rows.Close()

	out := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		p := &it.Product
		if err := rows.Scan(&it.ID, &it.CartID, &it.Quantity,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		it.ProductID = p.ID
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) AddCartItem(ctx context.Context, userID, cartID, productID int64, quantity int) (model.CartItem, error) {
	var item model.CartItem
	err := s.InTx(ctx, func(tx *Tx) error {
		if _, err := getCart(ctx, tx.tx, `id = ? AND user_id = ?`, cartID, userID); err != nil {
			return err
		}
		p, err := getProduct(ctx, tx.tx, productID)
		if err != nil {
			return err
		}
		res, err := tx.tx.ExecContext(ctx,
			`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (?, ?, ?)`, cartID, productID, quantity)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("cart item id: %w", err)
		}
		item = model.CartItem{ID: id, CartID: cartID, ProductID: productID, Product: p, Quantity: quantity}
		return nil
	})
	return item, err
}

// DeleteCart remove o carrinho do usuário e seus itens.
func (s *Store) DeleteCart(ctx context.Context, userID, cartID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE id = ? AND user_id = ?`, cartID, userID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart %d: %w", cartID, apperr.ErrNotFound)
	}
	return nil
}

func (s *Store) RemoveCartItem(ctx context.Context, userID, cartID, itemID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE id = ? AND cart_id = (SELECT id FROM carts WHERE id = ? AND user_id = ?)`,
		itemID, cartID, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cart item %d: %w", itemID, apperr.ErrNotFound)
	}
	return nil
}
