package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/api/handlers"
	"github.com/Cheertaboi/canteen-promo-service/internal/api/middleware"
	"github.com/Cheertaboi/canteen-promo-service/internal/service"
)

type Deps struct {
	Catalog   *service.Catalog
	Selector  *service.Selector
	Finalizer *service.Finalizer
	// Limiter guards the public promo-code routes. Nil disables limiting.
	Limiter *middleware.RateLimiter
	Log     *zap.Logger
}

// NewRouter builds the HTTP router for the promo service
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(chimw.Recoverer)

	promoHandler := handlers.NewPromoHandler(d.Selector, d.Log)
	promotionHandler := handlers.NewPromotionHandler(d.Catalog, d.Log)
	sessionHandler := handlers.NewSessionHandler(d.Finalizer, d.Log)

	// Public promo-code endpoints
	r.Route("/promocode", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		r.Post("/validate", promoHandler.Validate)
		r.Post("/best", promoHandler.Best)
		r.Post("/recommend", promoHandler.Recommend)
	})

	r.Post("/orders/session/finalize", sessionHandler.Finalize)

	// Officer endpoints
	r.Route("/admin/promotions", func(r chi.Router) {
		r.Post("/", promotionHandler.Create)
		r.Get("/", promotionHandler.List)
		r.Get("/stats", promotionHandler.Stats)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", promotionHandler.Get)
			r.Delete("/", promotionHandler.Delete)
			r.Post("/publish", promotionHandler.Publish)
			r.Post("/pause", promotionHandler.Pause)
			r.Post("/end", promotionHandler.End)
		})
	})

	// Manager endpoints
	r.Route("/manager/promotions", func(r chi.Router) {
		r.Get("/pending", promotionHandler.Pending)
		r.Post("/{id}/approve", promotionHandler.Approve)
		r.Post("/{id}/reject", promotionHandler.Reject)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
