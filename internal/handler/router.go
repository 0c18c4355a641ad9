package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xenking/kart-checkout/pkg/health"
	"github.com/xenking/kart-checkout/pkg/httpmiddleware"
)

// RouterConfig holds what the router mounts besides the handlers.
type RouterConfig struct {
	Health *health.Health
	// CheckoutLimit guards the routes that create provider objects.
	CheckoutLimit httpmiddleware.Middleware
}

// Router returns the chi router serving every route. Trailing slashes are
// ignored, so /order/add/ and /order/add are the same route.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.StripSlashes)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if cfg.Health != nil {
		r.Get("/livez", cfg.Health.LiveEndpoint)
		r.Get("/readyz", cfg.Health.ReadyEndpoint)
	}

	r.Group(func(r chi.Router) {
		if cfg.CheckoutLimit != nil {
			r.Use(cfg.CheckoutLimit)
		}
		r.Post("/buy/{item_id}", h.BuyItem(http.StatusCreated))
		r.Get("/buy/{item_id}", h.BuyItem(http.StatusOK))
		r.Post("/order/{order_id}/buy", h.BuyOrder)
		r.Get("/order/{order_id}/buy", h.BuyOrder)
		r.Post("/order/buy", h.BuyOrderFromBody)
	})

	r.Post("/order/add", h.AddItem)
	r.Post("/order/remove", h.RemoveItem)
	r.Get("/order/{order_id}", h.GetOrder)
	r.Post("/order/{order_id}/adjustments", h.SetAdjustments)

	r.Get("/items", h.ListItems)
	r.Get("/item/{id}", h.ItemPage)
	r.Get("/success", h.SuccessPage)
	r.Get("/cancel", h.CancelPage)

	return r
}
