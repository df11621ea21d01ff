package mappings

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// Handler exposes the account mapping admin API.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

type upsertRequest struct {
	Module    string `json:"module" validate:"required,max=32"`
	Key       string `json:"key" validate:"required,max=64"`
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.List(r.Context(), r.URL.Query().Get("module"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	mapping := AccountMapping{Module: req.Module, Key: req.Key, AccountID: req.AccountID}
	if err := h.repo.Upsert(r.Context(), mapping); err != nil {
		h.logger.Error("upsert account mapping", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
