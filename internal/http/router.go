package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/musterapp/muster/api" // swagger docs registration
	"github.com/musterapp/muster/internal/session"
	"github.com/musterapp/muster/pkg/httpx"
	"github.com/musterapp/muster/pkg/slogx"
)

// RouterConfig wires the handlers and cross-cutting dependencies into the
// service mux.
type RouterConfig struct {
	Logger *slog.Logger
	Cache  session.Cache

	Auth    *AuthHandler
	Events  *EventHandler
	Catalog *CatalogHandler
	System  *SystemHandler
}

// NewRouter builds the full HTTP surface. The session pipeline wraps every
// route, so protected handlers never see an unauthorized request.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	strict := httpx.RateLimitByIP(httpx.StrictLimit)
	lenient := httpx.RateLimitByIP(httpx.LenientLimit)

	// Authentication. Credential endpoints get the strict limit.
	mux.Handle("POST /v1/auth/register", strict(http.HandlerFunc(cfg.Auth.Register)))
	mux.Handle("POST /v1/auth/login", strict(http.HandlerFunc(cfg.Auth.Login)))
	mux.Handle("POST /v1/auth/refresh-token", strict(http.HandlerFunc(cfg.Auth.RefreshToken)))
	mux.HandleFunc("POST /v1/auth/logout", cfg.Auth.Logout)
	mux.HandleFunc("POST /v1/auth/logout-all", cfg.Auth.LogoutAll)
	mux.HandleFunc("GET /v1/auth/me", cfg.Auth.Me)
	mux.HandleFunc("PATCH /v1/auth/me", cfg.Auth.UpdateMe)
	mux.HandleFunc("DELETE /v1/auth/me", cfg.Auth.DeleteMe)

	// Events.
	mux.HandleFunc("POST /v1/events", cfg.Events.CreateEvent)
	mux.HandleFunc("GET /v1/events", cfg.Events.ListEvents)
	mux.HandleFunc("GET /v1/events/{id}", cfg.Events.GetEvent)
	mux.HandleFunc("POST /v1/events/{id}/polls", cfg.Events.CreatePoll)
	mux.HandleFunc("GET /v1/events/{id}/polls", cfg.Events.ListPolls)

	// Public catalog.
	mux.Handle("GET /v1/categories", lenient(http.HandlerFunc(cfg.Catalog.ListCategories)))
	mux.Handle("GET /v1/subcategories", lenient(http.HandlerFunc(cfg.Catalog.ListSubcategories)))
	mux.Handle("GET /v1/about", lenient(http.HandlerFunc(cfg.System.About)))

	// Operational surface.
	mux.HandleFunc("GET /livez", cfg.System.Livez)
	mux.HandleFunc("GET /readyz", cfg.System.Readyz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /swagger/", httpSwagger.Handler())

	return httpx.Chain(mux,
		slogx.HTTPMiddleware(cfg.Logger),
		SessionMiddleware(cfg.Cache),
	)
}
