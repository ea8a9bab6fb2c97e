package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/domain"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/service"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/health"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/middleware"
)

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	cartService *service.CartService,
	favoritesService *service.FavoritesService,
	addressService *service.AddressService,
	orchestrator *service.CheckoutOrchestrator,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	// Operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(cartService, logger)
	favoritesHandler := NewFavoritesHandler(favoritesService, logger)
	addressHandler := NewAddressHandler(addressService, logger)
	checkoutHandler := NewCheckoutHandler(orchestrator, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{variantID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{variantID}", cartHandler.RemoveItem)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", favoritesHandler.List)
			r.Post("/", favoritesHandler.Save)
			r.Delete("/{variantID}", favoritesHandler.Remove)
		})

		r.Get("/addresses", addressHandler.List)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Begin)
			r.Get("/{id}", checkoutHandler.Get)
			r.Put("/{id}/address", checkoutHandler.SelectAddress)
			r.Put("/{id}/shipping", checkoutHandler.SelectShipping)
			r.Put("/{id}/points", checkoutHandler.SetPoints)
			r.Post("/{id}/submit", checkoutHandler.Submit)
			r.Delete("/{id}", checkoutHandler.Abandon)
		})
	})

	return r
}

// ContentTypeJSON sets the JSON content type on every response.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// identityFromRequest derives the storefront identity from the authenticated
// user header the gateway injects. No header means guest.
func identityFromRequest(r *http.Request) domain.Identity {
	return domain.Identity{UserID: r.Header.Get("X-User-ID")}
}
