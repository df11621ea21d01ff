package integration

import (
	"log/slog"
	"net/http"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// Handler receives externally-sourced events over HTTP.
type Handler struct {
	logger *slog.Logger
	hooks  *Hooks
}

func NewHandler(logger *slog.Logger, hooks *Hooks) *Handler {
	return &Handler{logger: logger, hooks: hooks}
}

func (h *Handler) OrderCompleted(w http.ResponseWriter, r *http.Request) {
	var evt OrderCompletedEvent
	if err := httpx.DecodeJSON(r, &evt); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.hooks.HandleOrderCompleted(r.Context(), evt); err != nil {
		h.logger.Error("order completed event", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) PaymentReceived(w http.ResponseWriter, r *http.Request) {
	var evt PaymentReceivedEvent
	if err := httpx.DecodeJSON(r, &evt); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.hooks.HandlePaymentReceived(r.Context(), evt); err != nil {
		h.logger.Error("payment received event", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
