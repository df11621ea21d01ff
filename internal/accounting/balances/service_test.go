package balances

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/accounting/accounts"
	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	snapshots map[string][]AccountBalance
	activity  map[string][]ActivityRow
	closings  map[string]map[int64]float64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		snapshots: make(map[string][]AccountBalance),
		activity:  make(map[string][]ActivityRow),
		closings:  make(map[string]map[int64]float64),
	}
}

func ymKey(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (r *memoryRepo) Snapshots(ctx context.Context, year, month int) ([]AccountBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[ymKey(year, month)], nil
}

func (r *memoryRepo) AggregatePostedActivity(ctx context.Context, year, month int) ([]ActivityRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activity[ymKey(year, month)], nil
}

func (r *memoryRepo) PreviousClosings(ctx context.Context, year, month int, accountIDs []int64) (map[int64]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]float64)
	for _, id := range accountIDs {
		if closing, ok := r.closings[ymKey(year, month)][id]; ok {
			out[id] = closing
		}
	}
	return out, nil
}

func (r *memoryRepo) UpsertSnapshot(ctx context.Context, balance AccountBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ymKey(balance.Year, balance.Month)
	for i, existing := range r.snapshots[key] {
		if existing.AccountID == balance.AccountID {
			r.snapshots[key][i] = balance
			return nil
		}
	}
	r.snapshots[key] = append(r.snapshots[key], balance)
	return nil
}

func (r *memoryRepo) PruneSnapshots(ctx context.Context, year, month int, keep []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make(map[int64]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	key := ymKey(year, month)
	var out []AccountBalance
	for _, b := range r.snapshots[key] {
		if kept[b.AccountID] {
			out = append(out, b)
		}
	}
	r.snapshots[key] = out
	return nil
}

type memoryPeriods struct {
	byID map[int64]periods.FiscalPeriod
}

func (p *memoryPeriods) FindByID(ctx context.Context, periodID int64) (periods.FiscalPeriod, error) {
	if period, ok := p.byID[periodID]; ok {
		return period, nil
	}
	return periods.FiscalPeriod{}, shared.ErrPeriodNotFound
}

func (p *memoryPeriods) FindByYearMonth(ctx context.Context, year, month int) (periods.FiscalPeriod, error) {
	for _, period := range p.byID {
		if period.Year == year && period.Month == month {
			return period, nil
		}
	}
	return periods.FiscalPeriod{}, shared.ErrPeriodNotFound
}

func TestClosingBalanceFormula(t *testing.T) {
	// Opening 100,000 with 50,000 debits and 20,000 credits closes at
	// 130,000 on a debit-normal account; the mirrored credit-normal case
	// closes at the same value with the totals swapped.
	require.InDelta(t, 130000.0, ClosingBalance(accounts.NormalBalanceDebit, 100000, 50000, 20000), 0.001)
	require.InDelta(t, 130000.0, ClosingBalance(accounts.NormalBalanceCredit, 100000, 20000, 50000), 0.001)
	require.InDelta(t, -10000.0, ClosingBalance(accounts.NormalBalanceDebit, 0, 5000, 15000), 0.001)
}

func TestOpenPeriodAggregatesLive(t *testing.T) {
	repo := newMemoryRepo()
	src := &memoryPeriods{byID: map[int64]periods.FiscalPeriod{
		2: {ID: 2, Year: 2025, Month: 2, Status: periods.PeriodStatusOpen},
	}}
	repo.activity[ymKey(2025, 2)] = []ActivityRow{
		{AccountID: 1, AccountCode: "1010", NormalBalance: accounts.NormalBalanceDebit, DebitTotal: 50000, CreditTotal: 20000},
	}
	repo.closings[ymKey(2025, 1)] = map[int64]float64{1: 100000}
	svc := NewService(repo, src, nil, 0)

	rows, err := svc.PeriodBalances(context.Background(), 2025, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, 100000.0, rows[0].Opening, 0.001)
	require.InDelta(t, 130000.0, rows[0].Closing, 0.001)
}

func TestClosedPeriodReadsSnapshots(t *testing.T) {
	repo := newMemoryRepo()
	src := &memoryPeriods{byID: map[int64]periods.FiscalPeriod{
		1: {ID: 1, Year: 2025, Month: 1, Status: periods.PeriodStatusClosed},
	}}
	repo.snapshots[ymKey(2025, 1)] = []AccountBalance{
		{AccountID: 1, Year: 2025, Month: 1, NormalBalance: accounts.NormalBalanceDebit, Closing: 42000},
	}
	// Live activity differs from the snapshot so the read path is visible.
	repo.activity[ymKey(2025, 1)] = []ActivityRow{
		{AccountID: 1, NormalBalance: accounts.NormalBalanceDebit, DebitTotal: 1},
	}
	svc := NewService(repo, src, nil, 0)

	rows, err := svc.PeriodBalances(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, 42000.0, rows[0].Closing, 0.001)
}

func TestUnknownPeriodFallsBackToLive(t *testing.T) {
	repo := newMemoryRepo()
	src := &memoryPeriods{byID: map[int64]periods.FiscalPeriod{}}
	repo.activity[ymKey(2025, 3)] = []ActivityRow{
		{AccountID: 7, NormalBalance: accounts.NormalBalanceCredit, CreditTotal: 900},
	}
	svc := NewService(repo, src, nil, 0)

	rows, err := svc.PeriodBalances(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, 900.0, rows[0].Closing, 0.001)
}

func TestRecalculatePersistsAndPrunes(t *testing.T) {
	repo := newMemoryRepo()
	src := &memoryPeriods{byID: map[int64]periods.FiscalPeriod{
		1: {ID: 1, Year: 2025, Month: 1, Status: periods.PeriodStatusOpen},
	}}
	repo.activity[ymKey(2025, 1)] = []ActivityRow{
		{AccountID: 1, NormalBalance: accounts.NormalBalanceDebit, DebitTotal: 1000},
		{AccountID: 2, NormalBalance: accounts.NormalBalanceCredit, CreditTotal: 1000},
	}
	// Stale snapshot for an account with no remaining posted activity.
	repo.snapshots[ymKey(2025, 1)] = []AccountBalance{{AccountID: 9, Year: 2025, Month: 1, Closing: 5}}
	svc := NewService(repo, src, nil, 0)

	require.NoError(t, svc.RecalculatePeriod(context.Background(), 1))

	snaps, err := repo.Snapshots(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	for _, snap := range snaps {
		require.NotEqual(t, int64(9), snap.AccountID)
	}
}

func TestTrialBalanceTolerance(t *testing.T) {
	repo := newMemoryRepo()
	src := &memoryPeriods{byID: map[int64]periods.FiscalPeriod{}}
	repo.activity[ymKey(2025, 1)] = []ActivityRow{
		{AccountID: 1, NormalBalance: accounts.NormalBalanceDebit, DebitTotal: 1000.004},
		{AccountID: 2, NormalBalance: accounts.NormalBalanceCredit, CreditTotal: 1000},
	}
	svc := NewService(repo, src, nil, 0)

	tb, err := svc.TrialBalance(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.True(t, tb.Balanced)
	require.InDelta(t, 0.004, tb.Difference, 0.0001)

	repo.activity[ymKey(2025, 1)][0].DebitTotal = 1100
	tb, err = svc.TrialBalance(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.False(t, tb.Balanced)
	require.InDelta(t, 100.0, tb.Difference, 0.001)
}

type memoryCache struct {
	stored map[string]TrialBalance
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{stored: make(map[string]TrialBalance)}
}

func (c *memoryCache) GetTrialBalance(ctx context.Context, year, month int) (TrialBalance, bool, error) {
	tb, ok := c.stored[ymKey(year, month)]
	return tb, ok, nil
}

func (c *memoryCache) SetTrialBalance(ctx context.Context, tb TrialBalance) error {
	c.sets++
	c.stored[ymKey(tb.Year, tb.Month)] = tb
	return nil
}

func (c *memoryCache) InvalidateTrialBalance(ctx context.Context, year, month int) error {
	delete(c.stored, ymKey(year, month))
	return nil
}

func TestTrialBalanceCachesOnlyClosedPeriods(t *testing.T) {
	repo := newMemoryRepo()
	cache := newMemoryCache()
	src := &memoryPeriods{byID: map[int64]periods.FiscalPeriod{
		1: {ID: 1, Year: 2025, Month: 1, Status: periods.PeriodStatusClosed},
		2: {ID: 2, Year: 2025, Month: 2, Status: periods.PeriodStatusOpen},
	}}
	repo.snapshots[ymKey(2025, 1)] = []AccountBalance{
		{AccountID: 1, Year: 2025, Month: 1, NormalBalance: accounts.NormalBalanceDebit, Closing: 500},
		{AccountID: 2, Year: 2025, Month: 1, NormalBalance: accounts.NormalBalanceCredit, Closing: 500},
	}
	repo.activity[ymKey(2025, 2)] = []ActivityRow{
		{AccountID: 1, NormalBalance: accounts.NormalBalanceDebit, DebitTotal: 100},
		{AccountID: 2, NormalBalance: accounts.NormalBalanceCredit, CreditTotal: 100},
	}
	svc := NewService(repo, src, cache, 0)

	// The open period is never cached: a new posting shows up on the very
	// next read.
	tb, err := svc.TrialBalance(context.Background(), 2025, 2)
	require.NoError(t, err)
	require.InDelta(t, 100.0, tb.TotalDebits, 0.001)
	require.Zero(t, cache.sets)

	repo.activity[ymKey(2025, 2)][0].DebitTotal = 250
	repo.activity[ymKey(2025, 2)][1].CreditTotal = 250
	tb, err = svc.TrialBalance(context.Background(), 2025, 2)
	require.NoError(t, err)
	require.InDelta(t, 250.0, tb.TotalDebits, 0.001)
	require.Zero(t, cache.sets)

	// The closed period lands in the cache and is served from it.
	_, err = svc.TrialBalance(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)

	repo.snapshots[ymKey(2025, 1)] = nil
	tb, err = svc.TrialBalance(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.InDelta(t, 500.0, tb.TotalDebits, 0.001)
	require.Equal(t, 1, cache.sets)
}

func TestAccountPeriodBalance(t *testing.T) {
	repo := newMemoryRepo()
	src := &memoryPeriods{byID: map[int64]periods.FiscalPeriod{}}
	repo.activity[ymKey(2025, 1)] = []ActivityRow{
		{AccountID: 1, NormalBalance: accounts.NormalBalanceDebit, DebitTotal: 250},
	}
	svc := NewService(repo, src, nil, 0)

	balance, err := svc.AccountPeriodBalance(context.Background(), 1, 2025, 1)
	require.NoError(t, err)
	require.InDelta(t, 250.0, balance.Closing, 0.001)

	_, err = svc.AccountPeriodBalance(context.Background(), 99, 2025, 1)
	require.ErrorIs(t, err, shared.ErrBalanceNotFound)
}
