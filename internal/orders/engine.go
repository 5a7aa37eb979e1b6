package orders

import (
	"context"
	"fmt"
	"go.uber.org/zap"
	"math"
	"sort"
)

// MaxItemQuantity is the largest quantity one order line may request; stock
// counts are stored as 32-bit integers.
const MaxItemQuantity = math.MaxInt32

type Engine struct {
	Store    Store
	Notifier Notifier
	Log      *zap.Logger
}

func NewEngine(store Store, n Notifier, log *zap.Logger) *Engine {
	if n == nil {
		n = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Store: store, Notifier: n, Log: log}
}

// PlaceOrder reserves stock for every item or for none of them.
//
// A nil error with status REJECTED means the order was processed and refused
// for lack of stock; a non-nil error means no order was recorded at all.
func (e *Engine) PlaceOrder(ctx context.Context, in PlaceOrderInput) (Order, error) {
	if err := validate(in); err != nil {
		return Order{}, err
	}

	ok, err := e.Store.StoreExists(ctx, in.StoreID)
	if err != nil {
		return Order{}, fmt.Errorf("%w: lookup store: %w", ErrTransactionFailed, err)
	}
	if !ok {
		return Order{}, fmt.Errorf("%w: store %d", ErrNotFound, in.StoreID)
	}

	var order Order
	err = e.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		order, err = tx.CreateOrder(ctx, in.StoreID, StatusPending)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		sufficient, err := checkStock(ctx, tx, in.StoreID, in.Items)
		if err != nil {
			return err
		}
		if !sufficient {
			if err := tx.SetOrderStatus(ctx, order.ID, StatusRejected); err != nil {
				return fmt.Errorf("reject order: %w", err)
			}
			order.Status = StatusRejected
			order.Items = []OrderItem{}
			return nil
		}

		items, err := reserve(ctx, tx, order.ID, in.StoreID, in.Items)
		if err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, order.ID, StatusConfirmed); err != nil {
			return fmt.Errorf("confirm order: %w", err)
		}
		order.Status = StatusConfirmed
		order.Items = items
		return nil
	})
	if err != nil {
		e.Log.Error("place order failed", zap.Int64("store_id", in.StoreID), zap.Error(err))
		return Order{}, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	e.Log.Info("order processed",
		zap.Int64("order_id", order.ID),
		zap.Int64("store_id", order.StoreID),
		zap.String("status", string(order.Status)),
		zap.Int("items", len(order.Items)),
	)

	// committed; notification is best effort from here on
	if order.Status == StatusConfirmed {
		e.Notifier.NotifyOrderConfirmed(ctx, order)
	}
	return order, nil
}

func (e *Engine) ListOrders(ctx context.Context, storeID int64) ([]Order, error) {
	if storeID <= 0 {
		return nil, fmt.Errorf("%w: store id must be positive", ErrInvalidArgument)
	}
	ok, err := e.Store.StoreExists(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup store: %w", ErrTransactionFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: store %d", ErrNotFound, storeID)
	}
	list, err := e.Store.ListOrders(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", ErrTransactionFailed, err)
	}
	return list, nil
}

func validate(in PlaceOrderInput) error {
	if in.StoreID <= 0 {
		return fmt.Errorf("%w: store id must be positive", ErrInvalidArgument)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidArgument)
	}
	for i, it := range in.Items {
		if it.ProductID <= 0 {
			return fmt.Errorf("%w: item %d: product id must be positive", ErrInvalidArgument, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalidArgument, i)
		}
		if it.Quantity > MaxItemQuantity {
			return fmt.Errorf("%w: item %d: quantity exceeds %d", ErrInvalidArgument, i, MaxItemQuantity)
		}
	}
	return nil
}

type demand struct {
	productID int64
	qty       int
}

// lockOrder sums the requested quantity per product and sorts by product id,
// so two orders naming the same products always lock them in the same order.
func lockOrder(items []ItemInput) []demand {
	idx := make(map[int64]int, len(items))
	out := make([]demand, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			// saturate; no stock row can hold MaxInt
			if out[i].qty > math.MaxInt-it.Quantity {
				out[i].qty = math.MaxInt
			} else {
				out[i].qty += it.Quantity
			}
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, demand{productID: it.ProductID, qty: it.Quantity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out
}

// checkStock locks and reads only. It stops at the first product that cannot
// be served; later products are neither locked nor checked.
func checkStock(ctx context.Context, tx Tx, storeID int64, items []ItemInput) (bool, error) {
	for _, d := range lockOrder(items) {
		qty, exists, err := tx.LockInventory(ctx, storeID, d.productID)
		if err != nil {
			return false, fmt.Errorf("lock inventory product=%d: %w", d.productID, err)
		}
		if !exists || qty < d.qty {
			return false, nil
		}
	}
	return true, nil
}

// reserve writes only; every row it touches is already locked by checkStock.
func reserve(ctx context.Context, tx Tx, orderID, storeID int64, items []ItemInput) ([]OrderItem, error) {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		if err := tx.DecrementInventory(ctx, storeID, it.ProductID, it.Quantity); err != nil {
			return nil, fmt.Errorf("decrement product=%d: %w", it.ProductID, err)
		}
		oi, err := tx.AddOrderItem(ctx, orderID, it.ProductID, it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("add item product=%d: %w", it.ProductID, err)
		}
		out = append(out, oi)
	}
	return out, nil
}
