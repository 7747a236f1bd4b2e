package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mystira-backend/internal/infrastructure/observability"
)

// NewRouter builds the admin HTTP router with the standard middleware chain
// and the Prometheus scrape endpoint.
func NewRouter(admin *AdminHandler, metrics *observability.Collector) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(instrument(metrics))
		admin.RegisterRoutes(r)
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// instrument adapts the metrics middleware to chi, labeling by route pattern
// rather than raw path so IDs do not explode the cardinality.
func instrument(metrics *observability.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.HTTPMiddleware(route)(next).ServeHTTP(w, r)
		})
	}
}
