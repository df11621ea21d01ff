package periods

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// AuditPort records state transitions for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// RecalcPort rebuilds balance snapshots for a period. Close calls it after
// the status transition commits so the snapshot reflects the final postings.
type RecalcPort interface {
	RecalculatePeriod(ctx context.Context, periodID int64) error
}

// CreateInput opens a new fiscal period.
type CreateInput struct {
	Year    int
	Month   int
	ActorID int64
}

// CloseInput closes an open period.
type CloseInput struct {
	PeriodID int64
	ActorID  int64
}

// ReopenInput reverts a closed period to open with a justification.
type ReopenInput struct {
	PeriodID int64
	ActorID  int64
	Reason   string
}

// LockInput makes a closed period permanently immutable.
type LockInput struct {
	PeriodID int64
	ActorID  int64
}

// Service owns the fiscal period lifecycle: Open -> Closed -> Locked, with
// Closed -> Open allowed as an audited exception.
type Service struct {
	repo   Repository
	audit  AuditPort
	recalc RecalcPort
	now    func() time.Time
}

func NewService(repo Repository, audit AuditPort, recalc RecalcPort) *Service {
	return &Service{repo: repo, audit: audit, recalc: recalc, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// Create registers a new open period for the given year and month.
func (s *Service) Create(ctx context.Context, input CreateInput) (FiscalPeriod, error) {
	if input.Month < 1 || input.Month > 12 {
		return FiscalPeriod{}, shared.ErrInvalidMonth
	}
	if input.Year < 1900 || input.Year > 9999 {
		return FiscalPeriod{}, shared.ErrYearOutOfRange
	}
	_, err := s.repo.FindByYearMonth(ctx, input.Year, input.Month)
	if err == nil {
		return FiscalPeriod{}, shared.ErrDuplicatePeriod
	}
	if !errors.Is(err, shared.ErrPeriodNotFound) {
		return FiscalPeriod{}, err
	}
	period := FiscalPeriod{
		Year:   input.Year,
		Month:  input.Month,
		Status: PeriodStatusOpen,
	}
	return s.repo.Insert(ctx, period)
}

// Close transitions an open period to closed. Periods close strictly in
// sequence: the previous period must already be closed or locked, unless
// this is the earliest period on record. Closing is refused while the
// period still holds draft journal entries.
func (s *Service) Close(ctx context.Context, input CloseInput) (FiscalPeriod, error) {
	var period FiscalPeriod
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, input.PeriodID)
		if err != nil {
			return err
		}
		switch current.Status {
		case PeriodStatusOpen:
		case PeriodStatusLocked:
			return shared.ErrPeriodLocked
		default:
			return shared.ErrPeriodNotOpen
		}
		prevYear, prevMonth := current.Previous()
		prev, err := tx.GetByYearMonth(ctx, prevYear, prevMonth)
		switch {
		case err == nil:
			if prev.Status == PeriodStatusOpen {
				return shared.ErrPreviousPeriodOpen
			}
		case errors.Is(err, shared.ErrPeriodNotFound):
			// Earliest period on record closes without a predecessor.
		default:
			return err
		}
		drafts, err := tx.CountDraftEntries(ctx, current.ID)
		if err != nil {
			return err
		}
		if drafts > 0 {
			return shared.ErrDraftEntriesRemain
		}
		now := s.now()
		if err := tx.MarkClosed(ctx, current.ID, input.ActorID, now); err != nil {
			return err
		}
		current.Status = PeriodStatusClosed
		current.ClosedBy = &input.ActorID
		current.ClosedAt = &now
		period = current
		return nil
	})
	if err != nil {
		return FiscalPeriod{}, err
	}
	if s.recalc != nil {
		_ = s.recalc.RecalculatePeriod(ctx, period.ID)
	}
	s.record(ctx, input.ActorID, "period.close", period, nil)
	return period, nil
}

// Reopen reverts a closed period to open. The justification is mandatory
// and must carry at least ten characters after trimming.
func (s *Service) Reopen(ctx context.Context, input ReopenInput) (FiscalPeriod, error) {
	reason := strings.TrimSpace(input.Reason)
	if len(reason) < 10 {
		return FiscalPeriod{}, shared.ErrReopenReasonTooShort
	}
	var period FiscalPeriod
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, input.PeriodID)
		if err != nil {
			return err
		}
		switch current.Status {
		case PeriodStatusClosed:
		case PeriodStatusLocked:
			return shared.ErrPeriodLocked
		default:
			return shared.ErrPeriodNotClosed
		}
		now := s.now()
		if err := tx.MarkReopened(ctx, current.ID, input.ActorID, reason, now); err != nil {
			return err
		}
		current.Status = PeriodStatusOpen
		current.ReopenedBy = &input.ActorID
		current.ReopenedAt = &now
		current.ReopenReason = reason
		period = current
		return nil
	})
	if err != nil {
		return FiscalPeriod{}, err
	}
	s.record(ctx, input.ActorID, "period.reopen", period, map[string]any{"reason": reason})
	return period, nil
}

// Lock makes a closed period terminally immutable. Locked periods can
// never be reopened.
func (s *Service) Lock(ctx context.Context, input LockInput) (FiscalPeriod, error) {
	var period FiscalPeriod
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, input.PeriodID)
		if err != nil {
			return err
		}
		switch current.Status {
		case PeriodStatusClosed:
		case PeriodStatusLocked:
			return shared.ErrPeriodLocked
		default:
			return shared.ErrPeriodNotClosed
		}
		now := s.now()
		if err := tx.MarkLocked(ctx, current.ID, input.ActorID, now); err != nil {
			return err
		}
		current.Status = PeriodStatusLocked
		current.LockedBy = &input.ActorID
		current.LockedAt = &now
		period = current
		return nil
	})
	if err != nil {
		return FiscalPeriod{}, err
	}
	s.record(ctx, input.ActorID, "period.lock", period, nil)
	return period, nil
}

// Get fetches a period by id.
func (s *Service) Get(ctx context.Context, periodID int64) (FiscalPeriod, error) {
	return s.repo.FindByID(ctx, periodID)
}

// GetByYearMonth fetches a period by its calendar coordinates.
func (s *Service) GetByYearMonth(ctx context.Context, year, month int) (FiscalPeriod, error) {
	return s.repo.FindByYearMonth(ctx, year, month)
}

// List returns periods for a year, or all periods when year is zero.
func (s *Service) List(ctx context.Context, year int) ([]FiscalPeriod, error) {
	return s.repo.List(ctx, year)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, period FiscalPeriod, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["year"] = period.Year
	meta["month"] = period.Month
	_ = s.audit.Record(ctx, internalshared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "fiscal_period",
		EntityID: fmt.Sprintf("%d", period.ID),
		Meta:     meta,
		At:       s.now(),
	})
}
