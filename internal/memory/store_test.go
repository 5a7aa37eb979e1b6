package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSetInventory(t *testing.T) {
	s := New()
	cat := s.AddCategory("Misc")
	st := s.AddStore("A", "")
	p := s.AddProduct("Pen", "", decimal.RequireFromString("1.005"), cat.ID)
	require.Equal(t, "1.01", p.Price.StringFixed(2))

	require.Error(t, s.SetInventory(st.ID, p.ID, -1))
	require.ErrorIs(t, s.SetInventory(999, p.ID, 1), orders.ErrNotFound)
	require.ErrorIs(t, s.SetInventory(st.ID, 999, 1), orders.ErrNotFound)

	require.NoError(t, s.SetInventory(st.ID, p.ID, 4))
	require.NoError(t, s.SetInventory(st.ID, p.ID, 6))
	q, ok := s.Quantity(st.ID, p.ID)
	require.True(t, ok)
	require.Equal(t, 6, q)
}

func TestInTx_DiscardsOnError(t *testing.T) {
	s := New()
	cat := s.AddCategory("Misc")
	st := s.AddStore("A", "")
	p := s.AddProduct("Pen", "", decimal.NewFromInt(1), cat.ID)
	require.NoError(t, s.SetInventory(st.ID, p.ID, 3))
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		o, err := tx.CreateOrder(ctx, st.ID, orders.StatusPending)
		require.NoError(t, err)
		require.NoError(t, tx.DecrementInventory(ctx, st.ID, p.ID, 2))

		q, ok, err := tx.LockInventory(ctx, st.ID, p.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 1, q, "reads see staged writes")

		require.NoError(t, tx.SetOrderStatus(ctx, o.ID, orders.StatusConfirmed))
		require.Error(t, tx.SetOrderStatus(ctx, o.ID, orders.StatusRejected))
		return boom
	})
	require.ErrorIs(t, err, boom)

	q, _ := s.Quantity(st.ID, p.ID)
	require.Equal(t, 3, q)
	list, err := s.ListOrders(ctx, st.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDecrementInventory_NeverNegative(t *testing.T) {
	s := New()
	cat := s.AddCategory("Misc")
	st := s.AddStore("A", "")
	p := s.AddProduct("Pen", "", decimal.NewFromInt(1), cat.ID)
	require.NoError(t, s.SetInventory(st.ID, p.ID, 1))

	err := s.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		return tx.DecrementInventory(ctx, st.ID, p.ID, 2)
	})
	require.ErrorIs(t, err, orders.ErrInsufficientStock)
}
