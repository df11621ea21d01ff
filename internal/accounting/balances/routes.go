package balances

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.PeriodBalances)
	r.Get("/account", h.AccountBalance)
	r.Get("/trial-balance", h.TrialBalance)
	r.Post("/recalculate", h.Recalculate)
}
