package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-retail-stores/internal/notify"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"net/http"
	"time"
)

type OrdersHandler struct {
	Engine *orders.Engine
	Log    *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/stores/{store_id}/orders", h.listOrders)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	ctx = notify.WithRequestID(ctx, middleware.GetReqID(r.Context()))

	o, err := h.Engine.PlaceOrder(ctx, req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	code := http.StatusCreated
	if o.Status == orders.StatusRejected {
		code = http.StatusOK
	}
	writeJSON(w, code, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(chi.URLParam(r, "store_id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Engine.ListOrders(ctx, storeID)
	if err != nil {
		writeError(w, h.Log, fmt.Errorf("list orders store=%d: %w", storeID, err))
		return
	}
	writeJSON(w, http.StatusOK, paginate(list, parsePage(r)))
}
