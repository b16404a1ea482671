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

// RecordPayment registra o pagamento de um pedido do usuário e confirma o
// pedido. Um pedido aceita um único pagamento.
func (s *Store) RecordPayment(ctx context.Context, userID, orderID int64, amount float64) (model.Payment, error) {
	p := model.Payment{OrderID: orderID, Amount: amount, Paid: true}
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := ownsOrder(ctx, tx.tx, userID, orderID); err != nil {
			return err
		}

		var exists bool
		if err := tx.tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM payments WHERE order_id = ?)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("payment lookup: %w", err)
		}
		if exists {
			return apperr.ErrPaymentExists
		}

		p.CreatedAt = time.Now().UTC()
		res, err := tx.tx.ExecContext(ctx,
			`INSERT INTO payments (order_id, amount, paid, created_at) VALUES (?, ?, ?, ?)`,
			p.OrderID, p.Amount, p.Paid, p.CreatedAt)
		if err != nil {
			if isConstraint(err, sqlite3ErrUnique) {
				return apperr.ErrPaymentExists
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("payment id: %w", err)
		}

		_, err = tx.UpdateOrderStatus(ctx, orderID, model.StatusConfirmed)
		return err
	})
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, userID int64) ([]model.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.order_id, p.amount, p.paid, p.created_at
		FROM payments p JOIN orders o ON o.id = p.order_id
		WHERE o.user_id = ? ORDER BY p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Paid, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPayment só enxerga pagamentos de pedidos do usuário.
func (s *Store) GetPayment(ctx context.Context, userID, paymentID int64) (model.Payment, error) {
	var p model.Payment
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.order_id, p.amount, p.paid, p.created_at
		FROM payments p JOIN orders o ON o.id = p.order_id
		WHERE p.id = ? AND o.user_id = ?`, paymentID, userID).
		Scan(&p.ID, &p.OrderID, &p.Amount, &p.Paid, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, fmt.Errorf("payment %d: %w", paymentID, apperr.ErrNotFound)
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}
