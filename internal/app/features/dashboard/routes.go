// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/pharmausage/internal/app/system/navigation"
	"github.com/go-chi/chi/v5"
)

// Routes wires the role home under whatever mount point the top-level
// router chooses (e.g., "/dashboard"). The handler itself answers 401 for
// sessions without a role so the body can carry the session state.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeDashboard)
	return r
}

// PharmacyRoutes is mounted at /pharmacies.
func PharmacyRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(navigation.RequireScreen(navigation.ScreenPharmacyDetail))
		pr.Get("/{id}", h.ServePharmacyDetail)
	})
	return r
}

// MarketingRoutes is mounted at /marketing.
func MarketingRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(navigation.RequireScreen(navigation.ScreenMarketingDetail))
		pr.Get("/{id}", h.ServeMarketingDetail)
	})
	return r
}
