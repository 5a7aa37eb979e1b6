package orders

import "time"

type Order struct {
	ID        int64       `json:"id"`
	StoreID   int64       `json:"store_id"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderItem `json:"order_items"`
}

func (o Order) TotalItems() int { return len(o.Items) }

type OrderItem struct {
	ID                int64  `json:"-"`
	OrderID           int64  `json:"-"`
	ProductID         int64  `json:"product_id"`
	ProductTitle      string `json:"product_name"`
	QuantityRequested int    `json:"quantity_requested"`
}

type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderInput struct {
	StoreID int64       `json:"store"`
	Items   []ItemInput `json:"items"`
}
