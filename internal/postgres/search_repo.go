package postgres

import (
	"context"
	sq "github.com/Masterminds/squirrel"
	"github.com/ariefcatur/go-retail-stores/internal/search"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// stockExpr yields the store's quantity for the current product, 0 without a row.
const stockExpr = "COALESCE((SELECT i.quantity FROM inventory i WHERE i.store_id = ? AND i.product_id = p.id), 0)"

type SearchRepo struct{ DB *pgxpool.Pool }

var _ search.Repository = (*SearchRepo)(nil)

type searchQuery struct {
	sql, countSQL   string
	args, countArgs []any
}

// buildSearch expects a normalized filter.
func buildSearch(f search.Filter) (searchQuery, error) {
	where := sq.And{}
	if f.Query != nil {
		pat := "%" + search.EscapeLike(*f.Query) + "%"
		where = append(where, sq.Or{
			sq.ILike{"p.title": pat},
			sq.ILike{"p.description": pat},
			sq.ILike{"c.name": pat},
		})
	}
	if f.Category != nil {
		where = append(where, sq.Expr("lower(c.name) = lower(?)", *f.Category))
	}
	if f.MinPrice != nil {
		where = append(where, sq.Expr("p.price >= ?::numeric", f.MinPrice.String()))
	}
	if f.MaxPrice != nil {
		where = append(where, sq.Expr("p.price <= ?::numeric", f.MaxPrice.String()))
	}
	if f.StoreID != nil && f.InStock {
		where = append(where, sq.Expr(stockExpr+" > 0", *f.StoreID))
	}

	data := psql.Select("p.id", "p.title", "COALESCE(p.description, '')", "p.price::text", "c.name").
		From("products p").
		Join("categories c ON c.id = p.category_id")
	if f.StoreID != nil {
		data = data.Column(sq.Expr(stockExpr+" AS store_quantity", *f.StoreID))
	}
	count := psql.Select("count(*)").
		From("products p").
		Join("categories c ON c.id = p.category_id")
	if len(where) > 0 {
		data = data.Where(where)
		count = count.Where(where)
	}

	switch f.Sort {
	case search.SortPriceAsc:
		data = data.OrderBy("p.price ASC", "p.id DESC")
	case search.SortPriceDesc:
		data = data.OrderBy("p.price DESC", "p.id DESC")
	default:
		data = data.OrderBy("p.id DESC")
	}
	if f.Page.Limit > 0 {
		data = data.Limit(uint64(f.Page.Limit)).Offset(uint64(f.Page.Offset))
	}

	var (
		q   searchQuery
		err error
	)
	if q.sql, q.args, err = data.ToSql(); err != nil {
		return searchQuery{}, err
	}
	if q.countSQL, q.countArgs, err = count.ToSql(); err != nil {
		return searchQuery{}, err
	}
	return q, nil
}

func (r *SearchRepo) SearchProducts(ctx context.Context, f search.Filter) (search.Result, error) {
	q, err := buildSearch(f)
	if err != nil {
		return search.Result{}, err
	}

	var res search.Result
	if err := r.DB.QueryRow(ctx, q.countSQL, q.countArgs...).Scan(&res.Total); err != nil {
		return search.Result{}, err
	}

	rows, err := r.DB.Query(ctx, q.sql, q.args...)
	if err != nil {
		return search.Result{}, err
	}
	defer rows.Close()

	res.Hits = []search.ProductHit{}
	for rows.Next() {
		var (
			h     search.ProductHit
			price string
			dest  = []any{&h.ID, &h.Title, &h.Description, &price, &h.CategoryName}
		)
		if f.StoreID != nil {
			h.StoreQuantity = new(int)
			dest = append(dest, h.StoreQuantity)
		}
		if err := rows.Scan(dest...); err != nil {
			return search.Result{}, err
		}
		if h.Price, err = decimal.NewFromString(price); err != nil {
			return search.Result{}, err
		}
		res.Hits = append(res.Hits, h)
	}
	return res, rows.Err()
}

// SuggestTitles ranks prefix matches first, then titles in byte order.
func (r *SearchRepo) SuggestTitles(ctx context.Context, query string, limit int) ([]string, error) {
	esc := search.EscapeLike(query)
	rows, err := r.DB.Query(ctx, `
		SELECT title FROM products
		WHERE title ILIKE $1
		ORDER BY (title ILIKE $2) DESC, title COLLATE "C" ASC, id ASC
		LIMIT $3`, "%"+esc+"%", esc+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
