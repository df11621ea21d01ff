package fixedassets

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ListAssets)
	r.Post("/", h.CreateAsset)
	r.Get("/{id}", h.ShowAsset)
	r.Post("/{id}/activate", h.Activate)
	r.Post("/{id}/dispose", h.Dispose)
	r.Post("/{id}/write-off", h.WriteOff)

	r.Get("/depreciation/preview", h.PreviewRun)
	r.Post("/depreciation/runs", h.CalculateRun)
	r.Get("/depreciation/runs/{id}", h.ShowRun)
	r.Post("/depreciation/runs/{id}/post", h.PostRun)
}
