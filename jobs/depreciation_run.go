package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-erp/atlas-erp/internal/accounting/fixedassets"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
)

const systemActorID = 1

// DepreciationRunner is the slice of the fixed asset service the job needs.
type DepreciationRunner interface {
	CalculateRun(ctx context.Context, year, month int, actorID int64, recalculate bool) (fixedassets.DepreciationRun, error)
}

// DepreciationRunJob calculates the depreciation run for the prior month.
type DepreciationRunJob struct {
	Assets  DepreciationRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDepreciationRunJob initialises the monthly depreciation handler.
func NewDepreciationRunJob(assets DepreciationRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *DepreciationRunJob {
	return &DepreciationRunJob{
		Assets:  assets,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the depreciation calculation.
func (j *DepreciationRunJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Assets == nil {
		return errors.New("depreciation run: handler not configured")
	}
	var payload DepreciationRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Year == 0 || payload.Month == 0 {
		prev := j.now().AddDate(0, -1, 0)
		payload.Year = prev.Year()
		payload.Month = int(prev.Month())
	}

	tracker := j.metrics().Track(TaskDepreciationRun)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int("year", payload.Year),
		slog.Int("month", payload.Month),
	)

	run, err := j.Assets.CalculateRun(ctx, payload.Year, payload.Month, systemActorID, payload.Recalculate)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateRun) || errors.Is(err, shared.ErrRunAlreadyPosted) {
			logger.Info("depreciation run already exists, skipping")
			return nil
		}
		resultErr = err
		logger.Error("depreciation run failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("depreciation run calculated",
		slog.Int64("run_id", run.ID),
		slog.String("total", run.TotalAmount.String()),
	)
	return resultErr
}

func (j *DepreciationRunJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *DepreciationRunJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *DepreciationRunJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
