// Package memory keeps the whole retail data model in process memory.
// Transactions are serialised and their writes staged until commit, so the
// store gives the same all-or-nothing guarantees as the Postgres backend.
package memory

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-retail-stores/internal/catalog"
	"github.com/ariefcatur/go-retail-stores/internal/inventory"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/ariefcatur/go-retail-stores/internal/search"
	"github.com/shopspring/decimal"
	"sort"
	"strings"
	"sync"
	"time"
)

type invKey struct{ store, product int64 }

type Store struct {
	txMu sync.Mutex // held for the life of a transaction
	mu   sync.RWMutex

	seq        int64
	categories map[int64]catalog.Category
	products   map[int64]catalog.Product
	stores     map[int64]catalog.Store
	inventory  map[invKey]catalog.Inventory
	orders     map[int64]orders.Order
	now        func() time.Time
}

var (
	_ orders.Store         = (*Store)(nil)
	_ search.Repository    = (*Store)(nil)
	_ inventory.Repository = (*Store)(nil)
)

func New() *Store {
	return &Store{
		categories: map[int64]catalog.Category{},
		products:   map[int64]catalog.Product{},
		stores:     map[int64]catalog.Store{},
		inventory:  map[invKey]catalog.Inventory{},
		orders:     map[int64]orders.Order{},
		now:        time.Now,
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) AddCategory(name string) catalog.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := catalog.Category{ID: s.nextID(), Name: name}
	s.categories[c.ID] = c
	return c
}

func (s *Store) AddProduct(title, description string, price decimal.Decimal, categoryID int64) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := catalog.Product{
		ID:          s.nextID(),
		Title:       title,
		Description: description,
		Price:       catalog.RoundPrice(price),
		CategoryID:  categoryID,
		CreatedAt:   s.now(),
	}
	s.products[p.ID] = p
	return p
}

func (s *Store) AddStore(name, location string) catalog.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := catalog.Store{ID: s.nextID(), Name: name, Location: location}
	s.stores[st.ID] = st
	return st
}

// SetInventory upserts the (store, product) row, like an external restock.
func (s *Store) SetInventory(storeID, productID int64, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[storeID]; !ok {
		return fmt.Errorf("%w: store %d", orders.ErrNotFound, storeID)
	}
	if _, ok := s.products[productID]; !ok {
		return fmt.Errorf("%w: product %d", orders.ErrNotFound, productID)
	}
	s.inventory[invKey{storeID, productID}] = catalog.Inventory{StoreID: storeID, ProductID: productID, Quantity: qty}
	return nil
}

// Quantity reports the stock row for (store, product).
func (s *Store) Quantity(storeID, productID int64) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.inventory[invKey{storeID, productID}]
	return row.Quantity, ok
}

func (s *Store) StoreExists(_ context.Context, storeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.stores[storeID]
	return ok, nil
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{s: s, inv: map[invKey]int{}, orders: map[int64]orders.Order{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, q := range tx.inv {
		row := s.inventory[k]
		row.Quantity = q
		s.inventory[k] = row
	}
	for id, o := range tx.orders {
		s.orders[id] = o
	}
	return nil
}

func (s *Store) ListOrders(_ context.Context, storeID int64) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []orders.Order{}
	for _, o := range s.orders {
		if o.StoreID != storeID {
			continue
		}
		o.Items = append([]orders.OrderItem(nil), o.Items...)
		for i := range o.Items {
			o.Items[i].ProductTitle = s.products[o.Items[i].ProductID].Title
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ListByStore(_ context.Context, storeID int64) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []inventory.Item{}
	for _, row := range s.inventory {
		if row.StoreID != storeID {
			continue
		}
		p := s.products[row.ProductID]
		out = append(out, inventory.Item{
			ProductID:    p.ID,
			ProductTitle: p.Title,
			Price:        p.Price,
			CategoryName: s.categories[p.CategoryID].Name,
			Quantity:     row.Quantity,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductTitle != out[j].ProductTitle {
			return out[i].ProductTitle < out[j].ProductTitle
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (s *Store) SearchProducts(_ context.Context, f search.Filter) (search.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []search.ProductHit
	for _, p := range s.products {
		cat := s.categories[p.CategoryID].Name
		if f.Query != nil && !containsFold(p.Title, *f.Query) &&
			!containsFold(p.Description, *f.Query) && !containsFold(cat, *f.Query) {
			continue
		}
		if f.Category != nil && !strings.EqualFold(cat, *f.Category) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		h := search.ProductHit{
			ID:           p.ID,
			Title:        p.Title,
			Description:  p.Description,
			Price:        p.Price,
			CategoryName: cat,
		}
		if f.StoreID != nil {
			q := s.inventory[invKey{*f.StoreID, p.ID}].Quantity
			if f.InStock && q <= 0 {
				continue
			}
			h.StoreQuantity = &q
		}
		hits = append(hits, h)
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		switch f.Sort {
		case search.SortPriceAsc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case search.SortPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		}
		return a.ID > b.ID
	})

	total := len(hits)
	if f.Page.Limit > 0 {
		lo := min(f.Page.Offset, total)
		hi := min(lo+f.Page.Limit, total)
		hits = hits[lo:hi]
	}
	if hits == nil {
		hits = []search.ProductHit{}
	}
	return search.Result{Total: total, Hits: hits}, nil
}

func (s *Store) SuggestTitles(_ context.Context, query string, limit int) ([]string, error) {
	s.mu.RLock()
	titles := make([]string, 0, len(s.products))
	for _, p := range s.products {
		titles = append(titles, p.Title)
	}
	s.mu.RUnlock()
	return search.RankTitles(titles, query, limit), nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
