package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-erp/atlas-erp/internal/accounting/balances"
	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
)

// PeriodLister returns the fiscal periods of one year.
type PeriodLister interface {
	List(ctx context.Context, year int) ([]periods.FiscalPeriod, error)
}

// TrialBalanceSource computes the trial balance of one period.
type TrialBalanceSource interface {
	TrialBalance(ctx context.Context, year, month int) (balances.TrialBalance, error)
}

// GLIntegrityJob sweeps the year's periods and flags any whose debit and
// credit totals disagree.
type GLIntegrityJob struct {
	Periods  PeriodLister
	Balances TrialBalanceSource
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewGLIntegrityJob initialises the ledger integrity handler.
func NewGLIntegrityJob(periods PeriodLister, balances TrialBalanceSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{
		Periods:  periods,
		Balances: balances,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity sweep.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Periods == nil || j.Balances == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Year == 0 {
		payload.Year = j.now().Year()
	}

	tracker := j.metrics().Track(TaskGLIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("year", payload.Year))
	logger.Info("starting ledger integrity sweep")

	list, err := j.Periods.List(ctx, payload.Year)
	if err != nil {
		resultErr = err
		return resultErr
	}

	unbalanced := 0
	for _, period := range list {
		tb, err := j.Balances.TrialBalance(ctx, period.Year, period.Month)
		if err != nil {
			resultErr = err
			logger.Error("trial balance failed",
				slog.Int("month", period.Month),
				slog.Any("error", err),
			)
			return resultErr
		}
		if tb.Balanced {
			continue
		}
		unbalanced++
		logger.Warn("trial balance out of balance",
			slog.Int("month", period.Month),
			slog.Float64("total_debits", tb.TotalDebits),
			slog.Float64("total_credits", tb.TotalCredits),
			slog.Float64("difference", tb.Difference),
		)
		j.Metrics.AddUnbalancedPeriod(period.Year, period.Month)
	}

	logger.Info("completed ledger integrity sweep",
		slog.Int("periods", len(list)),
		slog.Int("unbalanced", unbalanced),
	)
	return resultErr
}

func (j *GLIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *GLIntegrityJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
