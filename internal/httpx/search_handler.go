package httpx

import (
	"context"
	"github.com/ariefcatur/go-retail-stores/internal/redisx"
	"github.com/ariefcatur/go-retail-stores/internal/search"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimiter is satisfied by *redisx.Limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (redisx.RateLimitResult, error)
}

type SearchHandler struct {
	Engine *search.Engine
	Log    *zap.Logger

	// Limiter guards autocomplete; nil disables limiting.
	Limiter RateLimiter
	Limit   int
	Window  time.Duration
}

func (h *SearchHandler) Register(r chi.Router) {
	r.Get("/api/search/products", h.products)
	if h.Limiter != nil {
		r.With(h.rateLimit).Get("/api/search/suggest", h.suggest)
	} else {
		r.Get("/api/search/suggest", h.suggest)
	}
}

func (h *SearchHandler) products(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r)
	f := parseFilter(r)
	f.Page = search.Page{Limit: p.Size, Offset: p.offset()}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.SearchProducts(ctx, f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, paged[search.ProductHit]{
		Count: res.Total, Page: p.Number, PageSize: p.Size, Results: res.Hits,
	})
}

func (h *SearchHandler) suggest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	titles, err := h.Engine.Autocomplete(ctx, strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, titles)
}

// parseFilter ignores every parameter it cannot parse.
func parseFilter(r *http.Request) search.Filter {
	q := r.URL.Query()
	var f search.Filter
	if v := q.Get("q"); v != "" {
		f.Query = &v
	}
	if v := q.Get("category"); v != "" {
		f.Category = &v
	}
	if d, err := decimal.NewFromString(q.Get("min_price")); err == nil {
		f.MinPrice = &d
	}
	if d, err := decimal.NewFromString(q.Get("max_price")); err == nil {
		f.MaxPrice = &d
	}
	if id, err := strconv.ParseInt(q.Get("store_id"), 10, 64); err == nil {
		f.StoreID = &id
	}
	f.InStock, _ = strconv.ParseBool(q.Get("in_stock"))
	f.Sort = search.ParseSort(q.Get("sort"))
	return f
}

// rateLimit counts requests per client IP. Limiter failures let the request through.
func (h *SearchHandler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "unable to determine client ip"})
			return
		}
		res, err := h.Limiter.Allow(r.Context(), "suggest:"+ip, h.Limit, h.Window)
		if err != nil {
			h.Log.Warn("rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			retry := max(int(time.Until(res.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate limit exceeded",
				"retry_after": retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
