// Package store é a persistência da loja em SQLite.
//
// Escritas que disparam reações (criação de item de pedido, atualização de
// pedido) passam por Tx, que chama os ganchos registrados dentro da mesma
// transação: o efeito da reação e a escrita confirmam ou desfazem juntos.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"store-backend/internal/model"

	"github.com/mattn/go-sqlite3"
)

// OrderItemHook é chamado logo após a inserção de um item de pedido.
// Erro desfaz a transação inteira (o item não é persistido).
type OrderItemHook interface {
	OnOrderItemCreated(ctx context.Context, tx *Tx, item model.OrderItem) error
}

// OrderUpdateHook é chamado em toda atualização de pedido, com o status lido
// na mesma transação.
type OrderUpdateHook interface {
	OnOrderUpdated(ctx context.Context, tx *Tx, change model.StatusChange) error
}

type Hooks struct {
	OrderItemCreated []OrderItemHook
	OrderUpdated     []OrderUpdateHook
}

type Store struct {
	db    *sql.DB
	hooks Hooks
}

type Option func(*Store)

func WithHooks(h Hooks) Option {
	return func(s *Store) { s.hooks = h }
}

// Open abre (ou cria) o banco e aplica o schema.
//
// _txlock=immediate faz BEGIN pegar o lock de escrita na hora: duas transações
// que leem o status de um pedido e depois o atualizam nunca se intercalam.
func Open(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_fk=1&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializa escritas; uma conexão evita SQLITE_BUSY entre conexões
	// do mesmo processo e mantém bancos :memory: consistentes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT NOT NULL UNIQUE,
	token      TEXT NOT NULL UNIQUE,
	is_staff   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS products (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       REAL NOT NULL,
	stock       INTEGER NOT NULL CHECK (stock >= 0),
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS carts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS cart_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	cart_id    INTEGER NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
	product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	quantity   INTEGER NOT NULL CHECK (quantity > 0)
);
CREATE TABLE IF NOT EXISTS orders (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	status     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
	id         TEXT PRIMARY KEY,
	order_id   INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id INTEGER NOT NULL REFERENCES products(id),
	quantity   INTEGER NOT NULL CHECK (quantity > 0)
);
CREATE TABLE IF NOT EXISTS stock_ledger (
	item_id    TEXT PRIMARY KEY,
	product_id INTEGER NOT NULL,
	quantity   INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS payments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id   INTEGER NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
	amount     REAL NOT NULL,
	paid       INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_carts_user ON carts(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// querier é o que *sql.DB e *sql.Tx têm em comum.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx é uma transação de escrita com ganchos e callbacks pós-commit.
type Tx struct {
	tx          *sql.Tx
	hooks       Hooks
	afterCommit []func()
}

// AfterCommit agenda fn para depois do commit. Se a transação for desfeita,
// fn nunca roda.
func (t *Tx) AfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

// InTx roda fn numa transação. Erro (ou panic) de fn desfaz tudo.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	tx := &Tx{tx: sqlTx, hooks: s.hooks}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, f := range tx.afterCommit {
		f()
	}
	return nil
}

var (
	sqlite3ErrPrimaryKey = sqlite3.ErrConstraintPrimaryKey
	sqlite3ErrUnique     = sqlite3.ErrConstraintUnique
	sqlite3ErrForeignKey = sqlite3.ErrConstraintForeignKey
)

func isConstraint(err error, codes ...sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if se.ExtendedCode == c {
			return true
		}
	}
	return false
}
