package orders

import "context"

// Tx is the set of storage operations available inside one order transaction.
// LockInventory must hold an exclusive row lock until the transaction ends.
type Tx interface {
	CreateOrder(ctx context.Context, storeID int64, status Status) (Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, status Status) error
	AddOrderItem(ctx context.Context, orderID, productID int64, qty int) (OrderItem, error)
	LockInventory(ctx context.Context, storeID, productID int64) (qty int, exists bool, err error)
	DecrementInventory(ctx context.Context, storeID, productID int64, amount int) error
}

type Store interface {
	StoreExists(ctx context.Context, storeID int64) (bool, error)
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// ListOrders returns the store's orders newest first, items carrying product titles.
	ListOrders(ctx context.Context, storeID int64) ([]Order, error)
}

// Notifier receives confirmed orders after commit. It must not block.
type Notifier interface {
	NotifyOrderConfirmed(ctx context.Context, o Order)
}

type NopNotifier struct{}

func (NopNotifier) NotifyOrderConfirmed(context.Context, Order) {}
