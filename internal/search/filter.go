package search

import (
	"github.com/shopspring/decimal"
	"strings"
)

type Sort string

const (
	SortRelevance Sort = "relevance"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortNewest    Sort = "newest"
)

// ParseSort maps unknown keys to SortRelevance.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	case SortNewest:
		return SortNewest
	default:
		return SortRelevance
	}
}

// Page bounds the returned slice; Limit <= 0 returns everything.
type Page struct {
	Limit  int
	Offset int
}

// Filter is a set of independent optional predicates. Every non-nil field is
// ANDed with the others; only Query matches several columns (OR).
type Filter struct {
	Query    *string
	Category *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	StoreID  *int64
	InStock  bool // ignored without StoreID
	Sort     Sort
	Page     Page
}

// Normalize drops empty strings and bounds that cannot match anything useful.
// A non-blank Query is kept as given, surrounding spaces included, since it
// is a substring pattern; Category names are trimmed.
func (f Filter) Normalize() Filter {
	if f.Query != nil && strings.TrimSpace(*f.Query) == "" {
		f.Query = nil
	}
	f.Category = nonEmpty(f.Category)
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		f.MinPrice = nil
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		f.MaxPrice = nil
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		f.MinPrice, f.MaxPrice = nil, nil
	}
	if f.StoreID != nil && *f.StoreID <= 0 {
		f.StoreID = nil
	}
	if f.StoreID == nil {
		f.InStock = false
	}
	f.Sort = ParseSort(string(f.Sort))
	if f.Page.Offset < 0 {
		f.Page.Offset = 0
	}
	return f
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// EscapeLike escapes LIKE metacharacters so user input matches literally
// (backslash is the default ESCAPE character in Postgres).
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
