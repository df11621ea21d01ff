package integration

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/order-completed", h.OrderCompleted)
	r.Post("/payment-received", h.PaymentReceived)
}
