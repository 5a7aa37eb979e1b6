package inventory

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/shopspring/decimal"
)

// Item is one inventory row of a store joined with its product and category.
type Item struct {
	ProductID    int64           `json:"product_id"`
	ProductTitle string          `json:"product_title"`
	Price        decimal.Decimal `json:"price"`
	CategoryName string          `json:"category_name"`
	Quantity     int             `json:"quantity"`
}

type Repository interface {
	StoreExists(ctx context.Context, storeID int64) (bool, error)
	// ListByStore returns the store's rows sorted by product title ascending.
	ListByStore(ctx context.Context, storeID int64) ([]Item, error)
}

type Service struct {
	Repo Repository
}

func (s *Service) ListStoreInventory(ctx context.Context, storeID int64) ([]Item, error) {
	if storeID <= 0 {
		return nil, fmt.Errorf("%w: store id must be positive", orders.ErrInvalidArgument)
	}
	ok, err := s.Repo.StoreExists(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup store: %w", orders.ErrTransactionFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: store %d", orders.ErrNotFound, storeID)
	}
	items, err := s.Repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("%w: list inventory: %w", orders.ErrTransactionFailed, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}
