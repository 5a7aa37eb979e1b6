package httpx

import (
	"context"
	"github.com/ariefcatur/go-retail-stores/internal/inventory"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"net/http"
	"time"
)

type InventoryHandler struct {
	Service *inventory.Service
	Log     *zap.Logger
}

func (h *InventoryHandler) Register(r chi.Router) {
	r.Get("/stores/{store_id}/inventory", h.list)
}

func (h *InventoryHandler) list(w http.ResponseWriter, r *http.Request) {
	storeID, ok := pathID(chi.URLParam(r, "store_id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid store id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Service.ListStoreInventory(ctx, storeID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, paginate(items, parsePage(r)))
}
