package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStatus enumerates outcomes recorded against a processed event.
type EventStatus string

const (
	EventStatusProcessed EventStatus = "PROCESSED"
	EventStatusFailed    EventStatus = "FAILED"
)

// ProcessedEvent is the durable audit record for an externally-sourced event.
type ProcessedEvent struct {
	EventID     uuid.UUID
	Module      string
	Status      EventStatus
	Error       string
	ProcessedAt time.Time
}

// ErrEventNotProcessed indicates no record exists for the event id.
var ErrEventNotProcessed = errors.New("event not processed")

// ProcessedEventStore persists the processed-event ledger that makes
// at-least-once event delivery safe. Handlers look up the event id before
// acting and record the outcome afterwards.
type ProcessedEventStore struct {
	pool *pgxpool.Pool
}

// NewProcessedEventStore constructs the store.
func NewProcessedEventStore(pool *pgxpool.Pool) *ProcessedEventStore {
	return &ProcessedEventStore{pool: pool}
}

// Find returns the recorded outcome for an event id, or ErrEventNotProcessed.
func (s *ProcessedEventStore) Find(ctx context.Context, eventID uuid.UUID) (ProcessedEvent, error) {
	if s == nil {
		return ProcessedEvent{}, errors.New("processed event store not initialised")
	}
	var rec ProcessedEvent
	err := s.pool.QueryRow(ctx, `SELECT event_id, module, status, error, processed_at FROM processed_events WHERE event_id=$1`, eventID).
		Scan(&rec.EventID, &rec.Module, &rec.Status, &rec.Error, &rec.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProcessedEvent{}, ErrEventNotProcessed
		}
		return ProcessedEvent{}, err
	}
	return rec, nil
}

// RecordSuccess marks the event as processed.
func (s *ProcessedEventStore) RecordSuccess(ctx context.Context, eventID uuid.UUID, module string) error {
	return s.record(ctx, eventID, module, EventStatusProcessed, "")
}

// RecordFailure stores the failure message so operators can inspect it.
func (s *ProcessedEventStore) RecordFailure(ctx context.Context, eventID uuid.UUID, module, message string) error {
	return s.record(ctx, eventID, module, EventStatusFailed, message)
}

func (s *ProcessedEventStore) record(ctx context.Context, eventID uuid.UUID, module string, status EventStatus, message string) error {
	if s == nil {
		return errors.New("processed event store not initialised")
	}
	if eventID == uuid.Nil {
		return errors.New("event id required")
	}
	if module == "" {
		return errors.New("event module required")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO processed_events (event_id, module, status, error, processed_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (event_id) DO UPDATE SET status=EXCLUDED.status, error=EXCLUDED.error, processed_at=EXCLUDED.processed_at`,
		eventID, module, status, message)
	return err
}

// Cleanup removes failed records older than retention so they can be replayed.
func (s *ProcessedEventStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM processed_events WHERE status=$1 AND processed_at < $2`, EventStatusFailed, cutoff)
	return err
}
