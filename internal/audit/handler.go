package audit

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// Handler serves the audit trail API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Trail(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.Trail(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit trail", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"occurred_at", "actor_id", "action", "entity", "entity_id", "meta"})
	for _, row := range rows {
		meta := ""
		if row.Meta != nil {
			if encoded, err := json.Marshal(row.Meta); err == nil {
				meta = string(encoded)
			}
		}
		_ = writer.Write([]string{
			row.OccurredAt.Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		})
	}
	writer.Flush()
}

func parseFilters(r *http.Request) (TrailFilters, error) {
	q := r.URL.Query()
	var filters TrailFilters
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return TrailFilters{}, err
		}
		filters.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return TrailFilters{}, err
		}
		// Inclusive end of day.
		filters.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	if raw := q.Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return TrailFilters{}, err
		}
		filters.ActorID = id
	}
	filters.Entity = q.Get("entity")
	filters.Action = q.Get("action")
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	return filters, nil
}
