package orders_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/ariefcatur/go-retail-stores/internal/memory"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	db      *memory.Store
	store   int64
	a, b, c int64
}

func newFixture(t *testing.T, qa, qb, qc int) fixture {
	t.Helper()
	db := memory.New()
	cat := db.AddCategory("Electronics")
	st := db.AddStore("Downtown", "Main St 1")
	f := fixture{
		db:    db,
		store: st.ID,
		a:     db.AddProduct("Laptop", "", decimal.RequireFromString("999.99"), cat.ID).ID,
		b:     db.AddProduct("Mouse", "", decimal.RequireFromString("19.90"), cat.ID).ID,
		c:     db.AddProduct("Keyboard", "", decimal.RequireFromString("49.00"), cat.ID).ID,
	}
	require.NoError(t, db.SetInventory(f.store, f.a, qa))
	require.NoError(t, db.SetInventory(f.store, f.b, qb))
	require.NoError(t, db.SetInventory(f.store, f.c, qc))
	return f
}

func (f fixture) qty(t *testing.T, productID int64) int {
	t.Helper()
	q, ok := f.db.Quantity(f.store, productID)
	require.True(t, ok)
	return q
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []orders.Order
}

func (n *recordingNotifier) NotifyOrderConfirmed(_ context.Context, o orders.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, o)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t, 5, 5, 5)
	e := orders.NewEngine(f.db, nil, nil)

	tests := []struct {
		name string
		in   orders.PlaceOrderInput
		want error
	}{
		{"zero store", orders.PlaceOrderInput{Items: []orders.ItemInput{{ProductID: f.a, Quantity: 1}}}, orders.ErrInvalidArgument},
		{"no items", orders.PlaceOrderInput{StoreID: f.store}, orders.ErrInvalidArgument},
		{"zero quantity", orders.PlaceOrderInput{StoreID: f.store, Items: []orders.ItemInput{{ProductID: f.a}}}, orders.ErrInvalidArgument},
		{"negative quantity", orders.PlaceOrderInput{StoreID: f.store, Items: []orders.ItemInput{{ProductID: f.a, Quantity: -2}}}, orders.ErrInvalidArgument},
		{"bad product id", orders.PlaceOrderInput{StoreID: f.store, Items: []orders.ItemInput{{ProductID: 0, Quantity: 1}}}, orders.ErrInvalidArgument},
		{"unknown store", orders.PlaceOrderInput{StoreID: 9999, Items: []orders.ItemInput{{ProductID: f.a, Quantity: 1}}}, orders.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.PlaceOrder(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}

	list, err := e.ListOrders(context.Background(), f.store)
	require.NoError(t, err)
	require.Empty(t, list, "failed validation must not record orders")
	require.Equal(t, 5, f.qty(t, f.a))
}

func TestPlaceOrder_ConfirmThenReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 0, 0)
	n := &recordingNotifier{}
	e := orders.NewEngine(f.db, n, nil)

	first, err := e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusConfirmed, first.Status)
	require.Len(t, first.Items, 1)
	require.Equal(t, "Laptop", first.Items[0].ProductTitle)
	require.Equal(t, 3, first.Items[0].QuantityRequested)
	require.Equal(t, 2, f.qty(t, f.a))

	second, err := e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRejected, second.Status)
	require.Empty(t, second.Items)
	require.Equal(t, 2, f.qty(t, f.a))

	require.Equal(t, 1, n.count(), "only confirmed orders are announced")

	list, err := e.ListOrders(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID, "newest first")
	require.Equal(t, 0, list[0].TotalItems())
	require.Equal(t, 1, list[1].TotalItems())
}

func TestPlaceOrder_RejectIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 1, 10)
	e := orders.NewEngine(f.db, nil, nil)

	o, err := e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items: []orders.ItemInput{
			{ProductID: f.a, Quantity: 2},
			{ProductID: f.b, Quantity: 5},
			{ProductID: f.c, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRejected, o.Status)
	require.Equal(t, 10, f.qty(t, f.a))
	require.Equal(t, 1, f.qty(t, f.b))
	require.Equal(t, 10, f.qty(t, f.c))
}

func TestPlaceOrder_MissingInventoryRowRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 5, 5)
	other := f.db.AddStore("Uptown", "")
	e := orders.NewEngine(f.db, nil, nil)

	o, err := e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: other.ID,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRejected, o.Status)
}

func TestPlaceOrder_DuplicateLinesAreSummed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 0, 0)
	e := orders.NewEngine(f.db, nil, nil)

	o, err := e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 3}, {ProductID: f.a, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRejected, o.Status, "3+3 exceeds 5")
	require.Equal(t, 5, f.qty(t, f.a))

	o, err = e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 2}, {ProductID: f.a, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusConfirmed, o.Status)
	require.Len(t, o.Items, 2)
	require.Equal(t, 0, f.qty(t, f.a))
}

func TestPlaceOrder_HugeDuplicateLinesReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 0, 0)
	e := orders.NewEngine(f.db, nil, nil)

	o, err := e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items: []orders.ItemInput{
			{ProductID: f.a, Quantity: orders.MaxItemQuantity},
			{ProductID: f.a, Quantity: orders.MaxItemQuantity},
			{ProductID: f.a, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRejected, o.Status)
	require.Equal(t, 5, f.qty(t, f.a))

	_, err = e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: math.MaxInt}, {ProductID: f.a, Quantity: 2}},
	})
	require.ErrorIs(t, err, orders.ErrInvalidArgument)
	require.Equal(t, 5, f.qty(t, f.a))
}

func TestPlaceOrder_NoOversellUnderConcurrency(t *testing.T) {
	const (
		stock   = 7
		callers = 20
	)
	f := newFixture(t, stock, 0, 0)
	e := orders.NewEngine(f.db, nil, nil)

	var (
		mu        sync.Mutex
		confirmed int
	)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			o, err := e.PlaceOrder(context.Background(), orders.PlaceOrderInput{
				StoreID: f.store,
				Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 1}},
			})
			if err != nil {
				return err
			}
			if o.Status == orders.StatusConfirmed {
				mu.Lock()
				confirmed++
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, stock, confirmed)
	require.Equal(t, 0, f.qty(t, f.a))
}

// spyStore records the inventory rows locked inside each transaction and can
// fail a chosen operation.
type spyStore struct {
	*memory.Store
	mu       sync.Mutex
	locked   []int64
	failItem error
}

func (s *spyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return fn(ctx, &spyTx{Tx: tx, s: s})
	})
}

func (s *spyStore) lockedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.locked...)
}

type spyTx struct {
	orders.Tx
	s *spyStore
}

func (t *spyTx) LockInventory(ctx context.Context, storeID, productID int64) (int, bool, error) {
	t.s.mu.Lock()
	t.s.locked = append(t.s.locked, productID)
	t.s.mu.Unlock()
	return t.Tx.LockInventory(ctx, storeID, productID)
}

func (t *spyTx) AddOrderItem(ctx context.Context, orderID, productID int64, qty int) (orders.OrderItem, error) {
	if t.s.failItem != nil {
		return orders.OrderItem{}, t.s.failItem
	}
	return t.Tx.AddOrderItem(ctx, orderID, productID, qty)
}

func TestPlaceOrder_LocksInProductOrder(t *testing.T) {
	f := newFixture(t, 5, 5, 5)
	spy := &spyStore{Store: f.db}
	e := orders.NewEngine(spy, nil, nil)

	o, err := e.PlaceOrder(context.Background(), orders.PlaceOrderInput{
		StoreID: f.store,
		Items: []orders.ItemInput{
			{ProductID: f.c, Quantity: 1},
			{ProductID: f.a, Quantity: 1},
			{ProductID: f.b, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusConfirmed, o.Status)
	require.Equal(t, []int64{f.a, f.b, f.c}, spy.lockedIDs())

	// items keep request order
	require.Equal(t, f.c, o.Items[0].ProductID)
	require.Equal(t, f.b, o.Items[2].ProductID)
}

func TestPlaceOrder_StopsAtFirstShortfall(t *testing.T) {
	f := newFixture(t, 5, 0, 5)
	spy := &spyStore{Store: f.db}
	e := orders.NewEngine(spy, nil, nil)

	o, err := e.PlaceOrder(context.Background(), orders.PlaceOrderInput{
		StoreID: f.store,
		Items: []orders.ItemInput{
			{ProductID: f.a, Quantity: 1},
			{ProductID: f.b, Quantity: 1},
			{ProductID: f.c, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, orders.StatusRejected, o.Status)
	require.Equal(t, []int64{f.a, f.b}, spy.lockedIDs(), "rows after the shortfall are not locked")
	require.Equal(t, 5, f.qty(t, f.a))
	require.Equal(t, 5, f.qty(t, f.c))
}

func TestPlaceOrder_StorageFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 5, 5)
	boom := errors.New("disk on fire")
	spy := &spyStore{Store: f.db, failItem: boom}
	n := &recordingNotifier{}
	e := orders.NewEngine(spy, n, nil)

	_, err := e.PlaceOrder(ctx, orders.PlaceOrderInput{
		StoreID: f.store,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 2}},
	})
	require.ErrorIs(t, err, orders.ErrTransactionFailed)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 5, f.qty(t, f.a))
	require.Zero(t, n.count())

	list, err := e.ListOrders(ctx, f.store)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListOrders_Errors(t *testing.T) {
	f := newFixture(t, 1, 1, 1)
	e := orders.NewEngine(f.db, nil, nil)

	_, err := e.ListOrders(context.Background(), 0)
	require.ErrorIs(t, err, orders.ErrInvalidArgument)

	_, err = e.ListOrders(context.Background(), 4242)
	require.ErrorIs(t, err, orders.ErrNotFound)
}

type downStore struct{ *memory.Store }

func (downStore) StoreExists(context.Context, int64) (bool, error) {
	return false, errors.New("connection refused")
}

func TestListOrders_StoreLookupFailure(t *testing.T) {
	f := newFixture(t, 1, 1, 1)
	e := orders.NewEngine(downStore{f.db}, nil, nil)

	_, err := e.ListOrders(context.Background(), f.store)
	require.ErrorIs(t, err, orders.ErrTransactionFailed)
	require.ErrorContains(t, err, "connection refused")

	_, err = e.PlaceOrder(context.Background(), orders.PlaceOrderInput{
		StoreID: f.store,
		Items:   []orders.ItemInput{{ProductID: f.a, Quantity: 1}},
	})
	require.ErrorIs(t, err, orders.ErrTransactionFailed)
}
