package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the storefront API. The identity middleware guards
// everything under /api/v1; health stays open for probes.
func NewRouter(carts *CartHandler, orders *OrderHandler, cat *CatalogHandler, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{item_id}", carts.UpdateItem)
			r.Delete("/items/{item_id}", carts.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Post("/", orders.CreateOrder)
			r.Get("/{order_id}", orders.GetOrder)
			r.Put("/{order_id}/status", orders.UpdateStatus)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", cat.ListProducts)
			r.Post("/", cat.CreateProduct)
			r.Get("/featured", cat.Featured)
			r.Get("/low-stock", cat.LowStock)
			r.Get("/{product_id}", cat.GetProduct)
			r.Put("/{product_id}", cat.UpdateProduct)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", cat.ListCategories)
			r.Post("/", cat.CreateCategory)
		})
	})

	return r
}
