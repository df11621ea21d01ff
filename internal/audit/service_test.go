package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	rows       []TrailRow
	total      int
	lastLimit  int
	lastOffset int
}

func (s *stubRepo) Count(ctx context.Context, filters TrailFilters) (int, error) {
	return s.total, nil
}

func (s *stubRepo) Window(ctx context.Context, filters TrailFilters, limit, offset int) ([]TrailRow, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func trailRow(ts string, action, entity string) TrailRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TrailRow{ActorID: 1, Action: action, Entity: entity, EntityID: "1", OccurredAt: at}
}

func TestTrailPaging(t *testing.T) {
	repo := &stubRepo{
		total: 45,
		rows: []TrailRow{
			trailRow("2025-03-10T10:00:00Z", "journal.post", "journal_entry"),
			trailRow("2025-03-09T09:00:00Z", "period.close", "fiscal_period"),
		},
	}
	svc := NewService(repo)

	result, err := svc.Trail(context.Background(), TrailFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, 2, result.Pagination.Page)
	require.Equal(t, 45, result.Pagination.Total)
	require.Equal(t, 23, result.Pagination.TotalPages)
	require.Equal(t, 2, repo.lastLimit)
	require.Equal(t, 2, repo.lastOffset)
}

func TestTrailClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.Trail(context.Background(), TrailFilters{PageSize: 5000})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, repo.lastLimit)

	_, err = svc.Trail(context.Background(), TrailFilters{PageSize: -1})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize, repo.lastLimit)
	require.Equal(t, 0, repo.lastOffset)
}

func TestExportIsCapped(t *testing.T) {
	repo := &stubRepo{rows: []TrailRow{trailRow("2025-03-10T10:00:00Z", "asset.dispose", "fixed_asset")}}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), TrailFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, exportCap, repo.lastLimit)
	require.Equal(t, 0, repo.lastOffset)
}
