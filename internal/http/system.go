package http

import (
	"net/http"

	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/pkg/httpx"
	"github.com/musterapp/muster/pkg/slogx"
)

// SystemHandler serves health and service metadata endpoints.
type SystemHandler struct {
	Store   store.Store
	Service string
	Version string
}

// About handles GET /v1/about. Public.
func (h *SystemHandler) About(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"service": h.Service,
		"version": h.Version,
	})
}

// Livez handles GET /livez. Always healthy while the process serves.
func (h *SystemHandler) Livez(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz handles GET /readyz. Ready means the store answers.
func (h *SystemHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		slogx.FromContext(r.Context()).Warn("readiness check failed", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
