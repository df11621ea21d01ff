package fixedassets

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

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

type createAssetRequest struct {
	AssetNumber       string  `json:"asset_number" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	CategoryID        int64   `json:"category_id" validate:"required"`
	AcquisitionDate   string  `json:"acquisition_date" validate:"required,datetime=2006-01-02"`
	AcquisitionMethod string  `json:"acquisition_method"`
	AcquisitionCost   float64 `json:"acquisition_cost" validate:"required,gt=0"`
	UsefulLifeMonths  int     `json:"useful_life_months" validate:"required,gt=0"`
	SalvageValue      float64 `json:"salvage_value" validate:"gte=0"`
	Method            string  `json:"method" validate:"required,oneof=STRAIGHT_LINE DECLINING_BALANCE"`
	DepreciationStart string  `json:"depreciation_start" validate:"omitempty,datetime=2006-01-02"`
}

type activateRequest struct {
	Version int64 `json:"version" validate:"required"`
}

type runRequest struct {
	Year        int   `json:"year" validate:"required,min=1900,max=9999"`
	Month       int   `json:"month" validate:"required,min=1,max=12"`
	ActorID     int64 `json:"actor_id" validate:"required"`
	Recalculate bool  `json:"recalculate"`
}

type postRunRequest struct {
	ActorID int64 `json:"actor_id" validate:"required"`
}

type disposeRequest struct {
	Version           int64   `json:"version" validate:"required"`
	DisposalValue     float64 `json:"disposal_value" validate:"gte=0"`
	Date              string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ActorID           int64   `json:"actor_id" validate:"required"`
	CreateJournal     bool    `json:"create_journal"`
	ProceedsAccountID int64   `json:"proceeds_account_id"`
}

func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acquired, _ := time.Parse("2006-01-02", req.AcquisitionDate)
	var start time.Time
	if req.DepreciationStart != "" {
		start, _ = time.Parse("2006-01-02", req.DepreciationStart)
	}
	asset, err := h.service.CreateAsset(r.Context(), CreateAssetInput{
		AssetNumber:       req.AssetNumber,
		Name:              req.Name,
		CategoryID:        req.CategoryID,
		AcquisitionDate:   acquired,
		AcquisitionMethod: req.AcquisitionMethod,
		AcquisitionCost:   decimal.NewFromFloat(req.AcquisitionCost),
		UsefulLifeMonths:  req.UsefulLifeMonths,
		SalvageValue:      decimal.NewFromFloat(req.SalvageValue),
		Method:            DepreciationMethod(req.Method),
		DepreciationStart: start,
	})
	if err != nil {
		h.logger.Error("create asset", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) ShowAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context(), AssetStatus(r.URL.Query().Get("status")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assets)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	var req activateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	asset, err := h.service.Activate(r.Context(), id, req.Version)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) Dispose(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	var req disposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var date time.Time
	if req.Date != "" {
		date, _ = time.Parse("2006-01-02", req.Date)
	}
	asset, outcome, err := h.service.Dispose(r.Context(), DisposeInput{
		AssetID:           id,
		Version:           req.Version,
		DisposalValue:     decimal.NewFromFloat(req.DisposalValue),
		Date:              date,
		ActorID:           req.ActorID,
		CreateJournal:     req.CreateJournal,
		ProceedsAccountID: req.ProceedsAccountID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"asset": asset, "outcome": outcome})
}

func (h *Handler) WriteOff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	var req activateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	asset, outcome, err := h.service.WriteOff(r.Context(), id, req.Version, 0, false)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"asset": asset, "outcome": outcome})
}

func (h *Handler) PreviewRun(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid year")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid month")
		return
	}
	preview, err := h.service.PreviewRun(r.Context(), year, month)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

func (h *Handler) CalculateRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	run, err := h.service.CalculateRun(r.Context(), req.Year, req.Month, req.ActorID, req.Recalculate)
	if err != nil {
		h.logger.Error("calculate depreciation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, run)
}

func (h *Handler) PostRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid run id")
		return
	}
	var req postRunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	run, err := h.service.PostRun(r.Context(), id, req.ActorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) ShowRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid run id")
		return
	}
	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
