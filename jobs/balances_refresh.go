package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
)

// PeriodFinder resolves fiscal periods by year and month.
type PeriodFinder interface {
	FindByYearMonth(ctx context.Context, year, month int) (periods.FiscalPeriod, error)
}

// BalanceRecalculator rebuilds the balance snapshots of one period.
type BalanceRecalculator interface {
	RecalculatePeriod(ctx context.Context, periodID int64) error
}

// BalancesRefreshJob refreshes balance snapshots for the targeted period.
type BalancesRefreshJob struct {
	Periods  PeriodFinder
	Balances BalanceRecalculator
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewBalancesRefreshJob initialises the snapshot refresh handler.
func NewBalancesRefreshJob(periods PeriodFinder, balances BalanceRecalculator, logger *slog.Logger, metrics *jobmetrics.Metrics) *BalancesRefreshJob {
	return &BalancesRefreshJob{
		Periods:  periods,
		Balances: balances,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the snapshot refresh.
func (j *BalancesRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Periods == nil || j.Balances == nil {
		return errors.New("balances refresh: handler not configured")
	}
	var payload BalancesRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Year == 0 || payload.Month == 0 {
		now := j.now()
		payload.Year = now.Year()
		payload.Month = int(now.Month())
	}

	tracker := j.metrics().Track(TaskBalancesRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int("year", payload.Year),
		slog.Int("month", payload.Month),
	)

	period, err := j.Periods.FindByYearMonth(ctx, payload.Year, payload.Month)
	if err != nil {
		if errors.Is(err, shared.ErrPeriodNotFound) {
			logger.Info("no fiscal period for month, skipping refresh")
			return nil
		}
		resultErr = err
		return resultErr
	}

	if err := j.Balances.RecalculatePeriod(ctx, period.ID); err != nil {
		resultErr = err
		logger.Error("balance refresh failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("balance snapshots refreshed", slog.Int64("period_id", period.ID))
	return resultErr
}

func (j *BalancesRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *BalancesRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *BalancesRefreshJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
