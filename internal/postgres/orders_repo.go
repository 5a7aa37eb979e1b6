package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

// OrderRepo implements orders.Store. Every transaction runs with
// lock_timeout so a contended inventory row fails the order instead of
// waiting forever.
type OrderRepo struct {
	DB          *pgxpool.Pool
	LockTimeout time.Duration
}

var _ orders.Store = (*OrderRepo)(nil)

func (r *OrderRepo) StoreExists(ctx context.Context, storeID int64) (bool, error) {
	return storeExists(ctx, r.DB, storeID)
}

func storeExists(ctx context.Context, db *pgxpool.Pool, storeID int64) (bool, error) {
	var ok bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stores WHERE id=$1)`, storeID).Scan(&ok)
	return ok, err
}

func (r *OrderRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.LockTimeout > 0 {
		ms := fmt.Sprintf("%dms", r.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			return err
		}
	}

	if err := fn(ctx, &orderTx{tx: tx}); err != nil {
		return lockErr(err)
	}
	return tx.Commit(ctx)
}

// ErrLockTimeout reports that an inventory row stayed locked past LockTimeout.
var ErrLockTimeout = errors.New("inventory row lock timeout")

func lockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return err
}

type orderTx struct{ tx pgx.Tx }

func (t *orderTx) CreateOrder(ctx context.Context, storeID int64, status orders.Status) (orders.Order, error) {
	o := orders.Order{StoreID: storeID, Status: status, Items: []orders.OrderItem{}}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(store_id, status) VALUES ($1, $2)
		RETURNING id, created_at`, storeID, string(status)).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return orders.Order{}, err
	}
	return o, nil
}

// SetOrderStatus only moves an order out of PENDING.
func (t *orderTx) SetOrderStatus(ctx context.Context, orderID int64, status orders.Status) error {
	if !orders.CanTransition(orders.StatusPending, status) {
		return fmt.Errorf("order %d: illegal target status %s", orderID, status)
	}
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1 AND status=$3`,
		orderID, string(status), string(orders.StatusPending))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("order %d: not pending", orderID)
	}
	return nil
}

func (t *orderTx) AddOrderItem(ctx context.Context, orderID, productID int64, qty int) (orders.OrderItem, error) {
	it := orders.OrderItem{OrderID: orderID, ProductID: productID, QuantityRequested: qty}
	err := t.tx.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO order_items(order_id, product_id, quantity_requested)
			VALUES ($1, $2, $3)
			RETURNING id, product_id
		)
		SELECT ins.id, p.title FROM ins JOIN products p ON p.id = ins.product_id`,
		orderID, productID, qty,
	).Scan(&it.ID, &it.ProductTitle)
	if err != nil {
		return orders.OrderItem{}, err
	}
	return it, nil
}

func (t *orderTx) LockInventory(ctx context.Context, storeID, productID int64) (int, bool, error) {
	var qty int
	err := t.tx.QueryRow(ctx, `
		SELECT quantity FROM inventory
		WHERE store_id=$1 AND product_id=$2
		FOR UPDATE`, storeID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return qty, true, nil
}

// DecrementInventory refuses to go below zero even if called without a prior check.
func (t *orderTx) DecrementInventory(ctx context.Context, storeID, productID int64, amount int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE inventory SET quantity = quantity - $3
		WHERE store_id=$1 AND product_id=$2 AND quantity >= $3`, storeID, productID, amount)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: store=%d product=%d amount=%d", orders.ErrInsufficientStock, storeID, productID, amount)
	}
	return nil
}

// ListOrders loads orders and their items in one query.
func (r *OrderRepo) ListOrders(ctx context.Context, storeID int64) ([]orders.Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.store_id, o.status, o.created_at,
		       oi.id, oi.product_id, p.title, oi.quantity_requested
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.store_id = $1
		ORDER BY o.created_at DESC, o.id DESC, oi.id ASC`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.Order{}
	for rows.Next() {
		var (
			o        orders.Order
			status   string
			itemID   *int64
			prodID   *int64
			title    *string
			quantity *int
		)
		if err := rows.Scan(&o.ID, &o.StoreID, &status, &o.CreatedAt, &itemID, &prodID, &title, &quantity); err != nil {
			return nil, err
		}
		o.Status = orders.Status(status)
		if !o.Status.Valid() {
			return nil, fmt.Errorf("order %d: unknown status %q", o.ID, status)
		}
		if n := len(out); n == 0 || out[n-1].ID != o.ID {
			o.Items = []orders.OrderItem{}
			out = append(out, o)
		}
		if itemID != nil {
			last := &out[len(out)-1]
			last.Items = append(last.Items, orders.OrderItem{
				ID:                *itemID,
				OrderID:           o.ID,
				ProductID:         *prodID,
				ProductTitle:      *title,
				QuantityRequested: *quantity,
			})
		}
	}
	return out, rows.Err()
}
