package httpx

import (
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"go.uber.org/zap"
	"math"
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to status codes. Internal details stay in
// the log.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, orders.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

type page struct {
	Number int
	Size   int
}

func (p page) offset() int { return (p.Number - 1) * p.Size }

// parsePage reads page (1-based) and page_size; bad values fall back to defaults.
func parsePage(r *http.Request) page {
	p := page{Number: 1, Size: defaultPageSize}
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && n > 0 {
		p.Size = min(n, maxPageSize)
	}
	// keeps offset() from overflowing; such a page is past the end anyway
	p.Number = min(p.Number, math.MaxInt/p.Size)
	return p
}

type paged[T any] struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  []T `json:"results"`
}

func paginate[T any](all []T, p page) paged[T] {
	lo := min(p.offset(), len(all))
	hi := min(lo+p.Size, len(all))
	res := all[lo:hi]
	if res == nil {
		res = []T{}
	}
	return paged[T]{Count: len(all), Page: p.Number, PageSize: p.Size, Results: res}
}

func pathID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil
}
