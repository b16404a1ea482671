// Package reactions liga efeitos colaterais às escritas do store: baixa de
// estoque na criação de item de pedido e aviso de pedido concluído.
package reactions

import (
	"context"
	"fmt"

	"store-backend/internal/apperr"
	"store-backend/internal/model"
	"store-backend/internal/store"

	"github.com/sirupsen/logrus"
)

// StockReactor baixa o estoque do produto quando um item de pedido é criado.
// Cada item baixa no máximo uma vez; estoque insuficiente aborta a criação.
type StockReactor struct {
	Log logrus.FieldLogger
}

func (r *StockReactor) OnOrderItemCreated(ctx context.Context, tx *store.Tx, item model.OrderItem) error {
	claimed, err := tx.ClaimStockEvent(ctx, item)
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("order item %s: %w", item.ID, apperr.ErrDuplicateOrderItem)
	}

	remaining, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
	if err != nil {
		return err
	}
	if r.Log != nil {
		r.Log.WithFields(logrus.Fields{
			"order_id":   item.OrderID,
			"item_id":    item.ID,
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
			"remaining":  remaining,
		}).Debug("stock decremented")
	}
	return nil
}

// Notifier recebe o aviso de pedido concluído.
type Notifier interface {
	OrderCompleted(ctx context.Context, orderID int64) error
}

// CompletionReactor avisa o Notifier quando um pedido passa para "completed".
// O aviso sai depois do commit: transação desfeita não avisa, e como o status
// anterior é lido na mesma transação, cada transição avisa uma única vez.
type CompletionReactor struct {
	Notifier Notifier
	Log      logrus.FieldLogger
}

func (r *CompletionReactor) OnOrderUpdated(ctx context.Context, tx *store.Tx, change model.StatusChange) error {
	if !change.Completed() {
		return nil
	}
	// o contexto da requisição pode já ter sido cancelado quando o commit sai
	notifyCtx := context.WithoutCancel(ctx)
	tx.AfterCommit(func() {
		if err := r.Notifier.OrderCompleted(notifyCtx, change.OrderID); err != nil && r.Log != nil {
			r.Log.WithError(err).WithField("order_id", change.OrderID).Warn("completion notice failed")
		}
	})
	return nil
}

// Hooks monta os ganchos do store com os dois reatores.
func Hooks(n Notifier, log logrus.FieldLogger) store.Hooks {
	return store.Hooks{
		OrderItemCreated: []store.OrderItemHook{&StockReactor{Log: log}},
		OrderUpdated:     []store.OrderUpdateHook{&CompletionReactor{Notifier: n, Log: log}},
	}
}
