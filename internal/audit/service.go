package audit

import (
	"context"
	"fmt"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	exportCap       = 10000
)

// Service coordinates audit trail retrieval.
type Service struct {
	repo Repository
}

// NewService builds a new audit trail service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Trail returns one page of the audit trail with paging metadata.
func (s *Service) Trail(ctx context.Context, filters TrailFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	rows, err := s.repo.Window(ctx, filters, pageSize, (page-1)*pageSize)
	if err != nil {
		return Result{}, err
	}
	return Result{Rows: rows, Pagination: shared.NewPagination(page, pageSize, total)}, nil
}

// Export returns the filtered trail without paging, capped to keep the
// CSV download bounded.
func (s *Service) Export(ctx context.Context, filters TrailFilters) ([]TrailRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Window(ctx, filters, exportCap, 0)
}
