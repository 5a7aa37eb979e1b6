package postgres

import (
	"context"
	"github.com/ariefcatur/go-retail-stores/internal/inventory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type InventoryRepo struct{ DB *pgxpool.Pool }

var _ inventory.Repository = (*InventoryRepo)(nil)

func (r *InventoryRepo) StoreExists(ctx context.Context, storeID int64) (bool, error) {
	return storeExists(ctx, r.DB, storeID)
}

func (r *InventoryRepo) ListByStore(ctx context.Context, storeID int64) ([]inventory.Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.title, p.price::text, c.name, i.quantity
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE i.store_id = $1
		ORDER BY p.title, p.id`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []inventory.Item{}
	for rows.Next() {
		var (
			it    inventory.Item
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.ProductTitle, &price, &it.CategoryName, &it.Quantity); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
