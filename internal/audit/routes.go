package audit

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Trail)
	r.Get("/export", h.Export)
}
