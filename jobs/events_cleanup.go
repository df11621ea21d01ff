package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
)

// EventPruner removes stale failed rows from the processed-event ledger.
type EventPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// EventsCleanupJob prunes failed event records past the retention window.
// Successful records are kept forever since they back idempotency checks.
type EventsCleanupJob struct {
	Store   EventPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewEventsCleanupJob initialises the cleanup handler.
func NewEventsCleanupJob(store EventPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *EventsCleanupJob {
	return &EventsCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes the cleanup.
func (j *EventsCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("events cleanup: handler not configured")
	}
	var payload EventsCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = 30 * 24 * time.Hour
	}

	tracker := j.metrics().Track(TaskEventsCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Store.Cleanup(ctx, payload.Retention); err != nil {
		resultErr = err
		j.logger().Error("event cleanup failed", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("processed-event ledger pruned", slog.Duration("retention", payload.Retention))
	return resultErr
}

func (j *EventsCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *EventsCleanupJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
