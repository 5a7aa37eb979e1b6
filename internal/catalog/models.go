package catalog

import (
	"github.com/shopspring/decimal"
	"time"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is immutable from the point of view of orders and search.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"` // NUMERIC(10,2)
	CategoryID  int64           `json:"category_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Store struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Inventory is the stock of one product at one store; a missing row means zero.
type Inventory struct {
	StoreID   int64 `json:"store_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// RoundPrice normalises a price to the two fractional digits stored in the catalog.
func RoundPrice(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
