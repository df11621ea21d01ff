package balances

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atlas-erp/atlas-erp/internal/accounting/accounts"
	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// DefaultTolerance is the absolute trial-balance difference still treated
// as balanced, absorbing float rounding on two-decimal amounts.
const DefaultTolerance = 0.01

// recalcWorkers caps concurrent snapshot upserts during recalculation.
const recalcWorkers = 8

// PeriodSource resolves fiscal periods. Satisfied by periods.Repository.
type PeriodSource interface {
	FindByID(ctx context.Context, periodID int64) (periods.FiscalPeriod, error)
	FindByYearMonth(ctx context.Context, year, month int) (periods.FiscalPeriod, error)
}

// Cache stores computed trial balances between requests.
type Cache interface {
	GetTrialBalance(ctx context.Context, year, month int) (TrialBalance, bool, error)
	SetTrialBalance(ctx context.Context, tb TrialBalance) error
	InvalidateTrialBalance(ctx context.Context, year, month int) error
}

// Service derives per-account period balances, reading persisted snapshots
// for closed periods and aggregating posted lines live for open ones.
type Service struct {
	repo      Repository
	periods   PeriodSource
	cache     Cache
	tolerance float64
	now       func() time.Time
}

func NewService(repo Repository, periodSource PeriodSource, cache Cache, tolerance float64) *Service {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Service{repo: repo, periods: periodSource, cache: cache, tolerance: tolerance, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// PeriodBalances returns the balance of every account with activity in the
// given period. Closed and locked periods read persisted snapshots; open or
// unknown periods aggregate posted journal lines in real time, seeding each
// opening balance from the previous period's persisted closing.
func (s *Service) PeriodBalances(ctx context.Context, year, month int) ([]AccountBalance, error) {
	period, err := s.periods.FindByYearMonth(ctx, year, month)
	if err != nil && !errors.Is(err, shared.ErrPeriodNotFound) {
		return nil, err
	}
	if err == nil && period.Status != periods.PeriodStatusOpen {
		return s.repo.Snapshots(ctx, year, month)
	}
	return s.liveBalances(ctx, year, month)
}

// AccountPeriodBalance returns one account's balance for a period.
func (s *Service) AccountPeriodBalance(ctx context.Context, accountID int64, year, month int) (AccountBalance, error) {
	all, err := s.PeriodBalances(ctx, year, month)
	if err != nil {
		return AccountBalance{}, err
	}
	for _, b := range all {
		if b.AccountID == accountID {
			return b, nil
		}
	}
	return AccountBalance{}, shared.ErrBalanceNotFound
}

// RecalculatePeriod rebuilds the persisted snapshots for a period from its
// posted journal lines. Accounts without posted activity get no snapshot;
// stale snapshots from a previous run are pruned. Called when a period
// closes and available on demand.
func (s *Service) RecalculatePeriod(ctx context.Context, periodID int64) error {
	period, err := s.periods.FindByID(ctx, periodID)
	if err != nil {
		return err
	}
	computed, err := s.liveBalances(ctx, period.Year, period.Month)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recalcWorkers)
	for _, balance := range computed {
		g.Go(func() error {
			return s.repo.UpsertSnapshot(gctx, balance)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	keep := make([]int64, 0, len(computed))
	for _, balance := range computed {
		keep = append(keep, balance.AccountID)
	}
	if err := s.repo.PruneSnapshots(ctx, period.Year, period.Month, keep); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateTrialBalance(ctx, period.Year, period.Month)
	}
	return nil
}

// TrialBalance sums debit-side and credit-side closing balances for a
// period and reports whether they agree within the tolerance. Only closed
// and locked periods are cached: an open period changes with every posting,
// so it is always computed live. Recalculation invalidates the cache.
func (s *Service) TrialBalance(ctx context.Context, year, month int) (TrialBalance, error) {
	period, err := s.periods.FindByYearMonth(ctx, year, month)
	if err != nil && !errors.Is(err, shared.ErrPeriodNotFound) {
		return TrialBalance{}, err
	}
	cacheable := err == nil && period.Status != periods.PeriodStatusOpen
	if s.cache != nil && cacheable {
		if cached, ok, err := s.cache.GetTrialBalance(ctx, year, month); err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.PeriodBalances(ctx, year, month)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{Year: year, Month: month, Rows: rows, GeneratedAt: s.now()}
	for _, row := range rows {
		debitNormal := row.NormalBalance == accounts.NormalBalanceDebit
		switch {
		case debitNormal && row.Closing >= 0:
			tb.TotalDebits += row.Closing
		case debitNormal:
			tb.TotalCredits += -row.Closing
		case row.Closing >= 0:
			tb.TotalCredits += row.Closing
		default:
			tb.TotalDebits += -row.Closing
		}
	}
	tb.Difference = math.Abs(tb.TotalDebits - tb.TotalCredits)
	tb.Balanced = tb.Difference < s.tolerance
	if s.cache != nil && cacheable {
		_ = s.cache.SetTrialBalance(ctx, tb)
	}
	return tb, nil
}

func (s *Service) liveBalances(ctx context.Context, year, month int) ([]AccountBalance, error) {
	activity, err := s.repo.AggregatePostedActivity(ctx, year, month)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(activity))
	for _, row := range activity {
		ids = append(ids, row.AccountID)
	}
	prevYear, prevMonth := periods.PreviousPeriod(year, month)
	openings, err := s.repo.PreviousClosings(ctx, prevYear, prevMonth, ids)
	if err != nil {
		return nil, err
	}
	out := make([]AccountBalance, 0, len(activity))
	for _, row := range activity {
		opening := openings[row.AccountID]
		out = append(out, AccountBalance{
			AccountID:     row.AccountID,
			AccountCode:   row.AccountCode,
			AccountName:   row.AccountName,
			Year:          year,
			Month:         month,
			NormalBalance: row.NormalBalance,
			Opening:       opening,
			DebitTotal:    row.DebitTotal,
			CreditTotal:   row.CreditTotal,
			Closing:       ClosingBalance(row.NormalBalance, opening, row.DebitTotal, row.CreditTotal),
			UpdatedAt:     s.now(),
		})
	}
	return out, nil
}
