package reconciliation

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

type createRequest struct {
	BankAccountID    int64   `json:"bank_account_id" validate:"required"`
	Year             int     `json:"year" validate:"required,min=1900,max=9999"`
	Month            int     `json:"month" validate:"required,min=1,max=12"`
	StatementBalance float64 `json:"statement_balance"`
	BookBalance      float64 `json:"book_balance"`
	CreatedBy        int64   `json:"created_by" validate:"required"`
}

type matchRequest struct {
	TransactionID int64 `json:"transaction_id" validate:"required"`
	JournalLineID int64 `json:"journal_line_id" validate:"required"`
	ActorID       int64 `json:"actor_id" validate:"required"`
}

type autoMatchRequest struct {
	Candidates []candidateLine `json:"candidates" validate:"required,dive"`
}

type candidateLine struct {
	LineID      int64   `json:"line_id" validate:"required"`
	EntryID     int64   `json:"entry_id" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64 `json:"amount" validate:"required"`
	Description string  `json:"description"`
}

type itemRequest struct {
	Type         string  `json:"type" validate:"required,oneof=OUTSTANDING_CHECK DEPOSIT_IN_TRANSIT BANK_FEE INTEREST_EARNED"`
	Description  string  `json:"description" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	NeedsJournal bool    `json:"needs_journal"`
}

type approveRequest struct {
	ActorID int64 `json:"actor_id" validate:"required"`
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
	rec, err := h.service.Create(r.Context(), CreateInput{
		BankAccountID:    req.BankAccountID,
		Year:             req.Year,
		Month:            req.Month,
		StatementBalance: req.StatementBalance,
		BookBalance:      req.BookBalance,
		CreatedBy:        req.CreatedBy,
	})
	if err != nil {
		h.logger.Error("create reconciliation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("bank_account_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bank_account_id")
		return
	}
	recs, err := h.service.ListByAccount(r.Context(), accountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recs)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	rec, err := h.service.Start(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	var req matchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	txn, err := h.service.Match(r.Context(), MatchInput{
		ReconciliationID: id,
		TransactionID:    req.TransactionID,
		JournalLineID:    req.JournalLineID,
		ActorID:          req.ActorID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	var req autoMatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	candidates := make([]LedgerLine, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		date, _ := time.Parse("2006-01-02", c.Date)
		candidates = append(candidates, LedgerLine{LineID: c.LineID, EntryID: c.EntryID, Date: date, Amount: c.Amount, Description: c.Description})
	}
	results, err := h.service.AutoMatch(r.Context(), id, candidates)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, results)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	item, err := h.service.AddItem(r.Context(), ItemInput{
		ReconciliationID: id,
		Type:             ItemType(req.Type),
		Description:      req.Description,
		Amount:           req.Amount,
		Date:             date,
		NeedsJournal:     req.NeedsJournal,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	rec, err := h.service.CalculateAdjusted(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	rec, err := h.service.Complete(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := reconID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid reconciliation id")
		return
	}
	var req approveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Approve(r.Context(), id, req.ActorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func reconID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
