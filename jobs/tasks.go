package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskDepreciationRun calculates the monthly depreciation run.
	TaskDepreciationRun = "accounting:depreciation_run"
	// TaskBalancesRefresh rebuilds balance snapshots for a fiscal period.
	TaskBalancesRefresh = "accounting:balances_refresh"
	// TaskGLIntegrity verifies that every period's trial balance agrees.
	TaskGLIntegrity = "accounting:gl_integrity"
	// TaskEventsCleanup prunes stale failed rows from the processed-event ledger.
	TaskEventsCleanup = "events:cleanup"
)

// DepreciationRunPayload selects the period to depreciate. A zero year/month
// means the month before the scheduled run.
type DepreciationRunPayload struct {
	Year        int  `json:"year"`
	Month       int  `json:"month"`
	Recalculate bool `json:"recalculate"`
}

// NewDepreciationRunTask constructs the monthly depreciation task.
func NewDepreciationRunTask(payload DepreciationRunPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepreciationRun, body, asynq.Queue(QueueDefault)), nil
}

// BalancesRefreshPayload selects the period to recalculate. A zero year/month
// means the current month.
type BalancesRefreshPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewBalancesRefreshTask constructs the balance snapshot refresh task.
func NewBalancesRefreshTask(payload BalancesRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalancesRefresh, body, asynq.Queue(QueueDefault)), nil
}

// GLIntegrityPayload scopes the integrity sweep to one fiscal year. A zero
// year means the current year.
type GLIntegrityPayload struct {
	Year int `json:"year"`
}

// NewGLIntegrityTask constructs the ledger integrity task.
func NewGLIntegrityTask(payload GLIntegrityPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// EventsCleanupPayload carries the retention window for failed event records.
type EventsCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewEventsCleanupTask constructs the processed-event cleanup task.
func NewEventsCleanupTask(payload EventsCleanupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEventsCleanup, body, asynq.Queue(QueueDefault)), nil
}
