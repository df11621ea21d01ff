package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/accounting/balances"
	"github.com/atlas-erp/atlas-erp/internal/accounting/fixedassets"
	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

type stubRunner struct {
	year, month int
	recalc      bool
	err         error
}

func (s *stubRunner) CalculateRun(ctx context.Context, year, month int, actorID int64, recalculate bool) (fixedassets.DepreciationRun, error) {
	s.year, s.month, s.recalc = year, month, recalculate
	if s.err != nil {
		return fixedassets.DepreciationRun{}, s.err
	}
	return fixedassets.DepreciationRun{ID: 7, Year: year, Month: month}, nil
}

func task(t *testing.T, taskType string, payload any) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskType, body)
}

func TestDepreciationRunDefaultsToPriorMonth(t *testing.T) {
	runner := &stubRunner{}
	job := NewDepreciationRunJob(runner, nil, nil)
	job.clock = func() time.Time {
		return time.Date(2025, 1, 5, 3, 0, 0, 0, time.UTC)
	}

	err := job.Handle(context.Background(), task(t, TaskDepreciationRun, DepreciationRunPayload{}))
	require.NoError(t, err)
	require.Equal(t, 2024, runner.year)
	require.Equal(t, 12, runner.month)
	require.False(t, runner.recalc)
}

func TestDepreciationRunSkipsExistingRun(t *testing.T) {
	runner := &stubRunner{err: shared.ErrDuplicateRun}
	job := NewDepreciationRunJob(runner, nil, nil)

	err := job.Handle(context.Background(), task(t, TaskDepreciationRun, DepreciationRunPayload{Year: 2025, Month: 1}))
	require.NoError(t, err)
}

type stubPeriodSource struct {
	period periods.FiscalPeriod
	err    error
}

func (s *stubPeriodSource) FindByYearMonth(ctx context.Context, year, month int) (periods.FiscalPeriod, error) {
	if s.err != nil {
		return periods.FiscalPeriod{}, s.err
	}
	return s.period, nil
}

type stubRecalc struct {
	periodID int64
	calls    int
}

func (s *stubRecalc) RecalculatePeriod(ctx context.Context, periodID int64) error {
	s.periodID = periodID
	s.calls++
	return nil
}

func TestBalancesRefreshResolvesPeriod(t *testing.T) {
	source := &stubPeriodSource{period: periods.FiscalPeriod{ID: 42, Year: 2025, Month: 3}}
	recalc := &stubRecalc{}
	job := NewBalancesRefreshJob(source, recalc, nil, nil)

	err := job.Handle(context.Background(), task(t, TaskBalancesRefresh, BalancesRefreshPayload{Year: 2025, Month: 3}))
	require.NoError(t, err)
	require.Equal(t, int64(42), recalc.periodID)
}

func TestBalancesRefreshSkipsMissingPeriod(t *testing.T) {
	source := &stubPeriodSource{err: shared.ErrPeriodNotFound}
	recalc := &stubRecalc{}
	job := NewBalancesRefreshJob(source, recalc, nil, nil)

	err := job.Handle(context.Background(), task(t, TaskBalancesRefresh, BalancesRefreshPayload{Year: 2030, Month: 1}))
	require.NoError(t, err)
	require.Zero(t, recalc.calls)
}

type stubLister struct {
	list []periods.FiscalPeriod
}

func (s *stubLister) List(ctx context.Context, year int) ([]periods.FiscalPeriod, error) {
	return s.list, nil
}

type stubTrialBalance struct {
	byMonth map[int]balances.TrialBalance
}

func (s *stubTrialBalance) TrialBalance(ctx context.Context, year, month int) (balances.TrialBalance, error) {
	return s.byMonth[month], nil
}

func TestGLIntegritySweepFlagsUnbalancedPeriods(t *testing.T) {
	lister := &stubLister{list: []periods.FiscalPeriod{
		{ID: 1, Year: 2025, Month: 1},
		{ID: 2, Year: 2025, Month: 2},
	}}
	tbs := &stubTrialBalance{byMonth: map[int]balances.TrialBalance{
		1: {Year: 2025, Month: 1, Balanced: true},
		2: {Year: 2025, Month: 2, Balanced: false, TotalDebits: 500, TotalCredits: 400, Difference: 100},
	}}
	job := NewGLIntegrityJob(lister, tbs, nil, nil)

	err := job.Handle(context.Background(), task(t, TaskGLIntegrity, GLIntegrityPayload{Year: 2025}))
	require.NoError(t, err)
}

type stubPruner struct {
	olderThan time.Duration
}

func (s *stubPruner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	s.olderThan = olderThan
	return nil
}

func TestEventsCleanupDefaultsRetention(t *testing.T) {
	pruner := &stubPruner{}
	job := NewEventsCleanupJob(pruner, nil, nil)

	err := job.Handle(context.Background(), task(t, TaskEventsCleanup, EventsCleanupPayload{}))
	require.NoError(t, err)
	require.Equal(t, 30*24*time.Hour, pruner.olderThan)
}
