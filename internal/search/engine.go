package search

import (
	"context"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinSuggestLength = 3
	MaxSuggestions   = 10
)

type ProductHit struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	CategoryName  string          `json:"category_name"`
	StoreQuantity *int            `json:"store_quantity,omitempty"` // set only for store-scoped searches
}

type Result struct {
	Total int          `json:"count"`
	Hits  []ProductHit `json:"results"`
}

type Repository interface {
	SearchProducts(ctx context.Context, f Filter) (Result, error)
	// SuggestTitles returns titles containing query, prefix matches first,
	// then by title, at most limit.
	SuggestTitles(ctx context.Context, query string, limit int) ([]string, error)
}

// Cache stores autocomplete results. Implementations report a miss with (false, nil).
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Engine struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	log      *zap.Logger
	sf       singleflight.Group
}

// NewEngine builds a search engine; a nil cache disables autocomplete caching.
func NewEngine(repo Repository, cache Cache, cacheTTL time.Duration, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cache = nil
	}
	return &Engine{repo: repo, cache: cache, cacheTTL: cacheTTL, log: log}
}

func (e *Engine) SearchProducts(ctx context.Context, f Filter) (Result, error) {
	res, err := e.repo.SearchProducts(ctx, f.Normalize())
	if err != nil {
		return Result{}, err
	}
	if res.Hits == nil {
		res.Hits = []ProductHit{}
	}
	return res, nil
}

func (e *Engine) Autocomplete(ctx context.Context, query string) ([]string, error) {
	if utf8.RuneCountInString(query) < MinSuggestLength {
		return []string{}, nil
	}

	key := suggestKey(query)
	if e.cache != nil {
		var cached []string
		found, err := e.cache.Get(ctx, key, &cached)
		if err != nil {
			e.log.Warn("suggest cache get", zap.String("key", key), zap.Error(err))
		}
		if found {
			return cached, nil
		}
	}

	v, err, _ := e.sf.Do(key, func() (any, error) {
		return e.repo.SuggestTitles(ctx, query, MaxSuggestions)
	})
	if err != nil {
		return nil, err
	}
	titles, _ := v.([]string)
	if titles == nil {
		titles = []string{}
	}

	if e.cache != nil {
		if err := e.cache.SetWithTTL(ctx, key, titles, e.cacheTTL); err != nil {
			e.log.Warn("suggest cache set", zap.String("key", key), zap.Error(err))
		}
	}
	return titles, nil
}

// suggestKey folds case because matching is case-insensitive.
func suggestKey(query string) string {
	return "suggest:" + strings.ToLower(query)
}

// RankTitles orders titles containing query the way autocomplete does:
// prefix matches first, then title ascending (byte order). Titles not
// containing query are dropped. Used by storage backends without SQL.
func RankTitles(titles []string, query string, limit int) []string {
	q := strings.ToLower(query)
	type ranked struct {
		title  string
		prefix bool
	}
	var hits []ranked
	for _, t := range titles {
		lt := strings.ToLower(t)
		if !strings.Contains(lt, q) {
			continue
		}
		hits = append(hits, ranked{title: t, prefix: strings.HasPrefix(lt, q)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].prefix != hits[j].prefix {
			return hits[i].prefix
		}
		return hits[i].title < hits[j].title
	})
	out := make([]string, 0, min(len(hits), limit))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].title)
	}
	return out
}
