package http

import (
	"net/http"

	"github.com/musterapp/muster/internal/service"
	"github.com/musterapp/muster/pkg/httpx"
	"github.com/musterapp/muster/pkg/slogx"
)

// CatalogHandler serves the public read-only catalog endpoints.
type CatalogHandler struct {
	Events *service.EventService
}

type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type subcategoryResponse struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// ListCategories handles GET /v1/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Events.ListCategories(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("list categories failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// ListSubcategories handles GET /v1/subcategories.
func (h *CatalogHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Events.ListSubcategories(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("list subcategories failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]subcategoryResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, subcategoryResponse{ID: s.ID, CategoryID: s.CategoryID, Name: s.Name})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
