package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type lineRequest struct {
	AccountID int64   `json:"account_id" validate:"required"`
	Side      string  `json:"side" validate:"required,oneof=DEBIT CREDIT"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Memo      string  `json:"memo"`
}

type createRequest struct {
	Date        string        `json:"date" validate:"required,datetime=2006-01-02"`
	Description string        `json:"description" validate:"required"`
	Reference   string        `json:"reference"`
	Notes       string        `json:"notes"`
	CreatedBy   int64         `json:"created_by" validate:"required"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type updateRequest struct {
	Description string        `json:"description" validate:"required"`
	Reference   string        `json:"reference"`
	Notes       string        `json:"notes"`
	ActorID     int64         `json:"actor_id" validate:"required"`
	Lines       []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type actorRequest struct {
	ActorID int64 `json:"actor_id" validate:"required"`
}

type voidRequest struct {
	ActorID int64  `json:"actor_id" validate:"required"`
	Reason  string `json:"reason" validate:"required"`
}

func toLines(reqs []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(reqs))
	for _, l := range reqs {
		out = append(out, LineInput{AccountID: l.AccountID, Side: Side(l.Side), Amount: l.Amount, Memo: l.Memo})
	}
	return out
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	entry, err := h.service.Create(r.Context(), CreateInput{
		Date:        date,
		Description: req.Description,
		Reference:   req.Reference,
		Notes:       req.Notes,
		SourceModule: "",
		SourceID:     uuid.Nil,
		CreatedBy:    req.CreatedBy,
		Lines:        toLines(req.Lines),
	})
	if err != nil {
		h.logger.Error("create journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Update(r.Context(), UpdateInput{
		EntryID:     id,
		Description: req.Description,
		Reference:   req.Reference,
		Notes:       req.Notes,
		ActorID:     req.ActorID,
		Lines:       toLines(req.Lines),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	if err := h.service.Delete(r.Context(), id, 0); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Post(r.Context(), PostInput{EntryID: id, ActorID: req.ActorID})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Void(r.Context(), VoidInput{EntryID: id, ActorID: req.ActorID, Reason: req.Reason})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func entryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
