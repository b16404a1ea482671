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

const productColumns = `id, name, description, price, stock, created_at`

func scanProduct(sc interface{ Scan(...any) error }) (model.Product, error) {
	var p model.Product
	err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q querier, id int64) (model.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, fmt.Errorf("product %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price, stock, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, p.Stock, p.CreatedAt)
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return model.Product{}, fmt.Errorf("product id: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price = ?, stock = ? WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Stock, p.ID)
	if err != nil {
		return model.Product{}, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Product{}, fmt.Errorf("product %d: %w", p.ID, apperr.ErrNotFound)
	}
	return s.GetProduct(ctx, p.ID)
}

// DeleteProduct tira o produto dos carrinhos; produto já pedido não sai.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if isConstraint(err, sqlite3ErrForeignKey) {
		return fmt.Errorf("product %d: %w", id, apperr.ErrProductInUse)
	}
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DecrementStock baixa o estoque sem nunca passar de zero.
// Devolve apperr.ErrInsufficientStock (estoque intocado) quando não há o suficiente.
func (t *Tx) DecrementStock(ctx context.Context, productID int64, quantity int) (remaining int, err error) {
	p, err := getProduct(ctx, t.tx, productID)
	if err != nil {
		return 0, err
	}
	if p.Stock < quantity {
		return p.Stock, fmt.Errorf("product %d has %d, requested %d: %w",
			productID, p.Stock, quantity, apperr.ErrInsufficientStock)
	}

	res, err := t.tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		quantity, productID, quantity)
	if err != nil {
		return 0, fmt.Errorf("decrement stock %d: %w", productID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return 0, fmt.Errorf("product %d: %w", productID, apperr.ErrInsufficientStock)
	}
	return p.Stock - quantity, nil
}

// ClaimStockEvent registra que o item já baixou estoque. Devolve false se o
// mesmo item já tinha sido registrado.
func (t *Tx) ClaimStockEvent(ctx context.Context, item model.OrderItem) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO stock_ledger (item_id, product_id, quantity, created_at) VALUES (?, ?, ?, ?)`,
		item.ID, item.ProductID, item.Quantity, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim stock event %s: %w", item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim stock event %s: %w", item.ID, err)
	}
	return n == 1, nil
}
