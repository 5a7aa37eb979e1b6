package memory

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
)

// memTx stages writes; the parent store applies them on commit. Reads go
// through the staged state first.
type memTx struct {
	s      *Store
	inv    map[invKey]int
	orders map[int64]orders.Order
}

func (t *memTx) CreateOrder(_ context.Context, storeID int64, status orders.Status) (orders.Order, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.stores[storeID]; !ok {
		return orders.Order{}, fmt.Errorf("%w: store %d", orders.ErrNotFound, storeID)
	}
	o := orders.Order{
		ID:        t.s.nextID(),
		StoreID:   storeID,
		Status:    status,
		CreatedAt: t.s.now(),
		Items:     []orders.OrderItem{},
	}
	t.orders[o.ID] = o
	return o, nil
}

func (t *memTx) SetOrderStatus(_ context.Context, orderID int64, status orders.Status) error {
	o, ok := t.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: order %d", orders.ErrNotFound, orderID)
	}
	if !orders.CanTransition(o.Status, status) {
		return fmt.Errorf("order %d: illegal transition %s -> %s", orderID, o.Status, status)
	}
	o.Status = status
	t.orders[orderID] = o
	return nil
}

func (t *memTx) AddOrderItem(_ context.Context, orderID, productID int64, qty int) (orders.OrderItem, error) {
	o, ok := t.orders[orderID]
	if !ok {
		return orders.OrderItem{}, fmt.Errorf("%w: order %d", orders.ErrNotFound, orderID)
	}
	t.s.mu.Lock()
	p, exists := t.s.products[productID]
	id := t.s.nextID()
	t.s.mu.Unlock()
	if !exists {
		return orders.OrderItem{}, fmt.Errorf("%w: product %d", orders.ErrNotFound, productID)
	}
	it := orders.OrderItem{
		ID:                id,
		OrderID:           orderID,
		ProductID:         productID,
		ProductTitle:      p.Title,
		QuantityRequested: qty,
	}
	o.Items = append(o.Items, it)
	t.orders[orderID] = o
	return it, nil
}

// LockInventory needs no row lock of its own: the transaction mutex already
// excludes every other writer.
func (t *memTx) LockInventory(_ context.Context, storeID, productID int64) (int, bool, error) {
	k := invKey{storeID, productID}
	if q, ok := t.inv[k]; ok {
		return q, true, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	row, ok := t.s.inventory[k]
	return row.Quantity, ok, nil
}

func (t *memTx) DecrementInventory(ctx context.Context, storeID, productID int64, amount int) error {
	q, ok, _ := t.LockInventory(ctx, storeID, productID)
	if !ok {
		return fmt.Errorf("%w: inventory store=%d product=%d", orders.ErrNotFound, storeID, productID)
	}
	if q < amount {
		return fmt.Errorf("%w: store=%d product=%d have=%d want=%d", orders.ErrInsufficientStock, storeID, productID, q, amount)
	}
	t.inv[invKey{storeID, productID}] = q - amount
	return nil
}
