package reconciliation

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ListByAccount)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/match", h.Match)
	r.Post("/{id}/auto-match", h.AutoMatch)
	r.Post("/{id}/items", h.AddItem)
	r.Post("/{id}/calculate", h.Calculate)
	r.Post("/{id}/complete", h.Complete)
	r.Post("/{id}/approve", h.Approve)
}
