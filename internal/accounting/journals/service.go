package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// Service coordinates the draft/post/void lifecycle of journal entries.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates the input and persists a new draft entry. The entry
// number is allocated from the per-period sequence inside the transaction so
// numbers are strictly increasing within a fiscal period.
func (s *Service) Create(ctx context.Context, input CreateInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := s.createInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// createInTx inserts a draft entry with its lines and source link inside
// the caller's transaction.
func (s *Service) createInTx(ctx context.Context, tx TxRepository, input CreateInput) (JournalEntry, error) {
	period, err := tx.GetPeriodByDate(ctx, input.Date)
	if err != nil {
		return JournalEntry{}, err
	}
	if period.Status != periods.PeriodStatusOpen {
		return JournalEntry{}, shared.ErrPeriodNotOpen
	}
	if err := s.checkLineAccounts(ctx, tx, input.Lines); err != nil {
		return JournalEntry{}, err
	}
	number, err := tx.NextEntryNumber(ctx, period.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry := JournalEntry{
		EntryNumber:  number,
		PeriodID:     period.ID,
		Date:         input.Date,
		Description:  input.Description,
		Reference:    input.Reference,
		Notes:        input.Notes,
		Status:       JournalStatusDraft,
		SourceModule: input.SourceModule,
		SourceID:     input.SourceID,
		CreatedBy:    input.CreatedBy,
	}
	inserted, err := tx.InsertEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := tx.InsertLines(ctx, inserted.ID, input.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if input.SourceModule != "" {
		if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, inserted.ID); err != nil {
			if errors.Is(err, shared.ErrSourceConflict) {
				return JournalEntry{}, shared.ErrSourceAlreadyLinked
			}
			return JournalEntry{}, err
		}
	}
	inserted.Lines = lines
	return inserted, nil
}

// Update replaces the description and lines of a draft entry.
func (s *Service) Update(ctx context.Context, input UpdateInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return shared.ErrEntryNotDraft
		}
		if err := s.checkLineAccounts(ctx, tx, input.Lines); err != nil {
			return err
		}
		current.Description = input.Description
		current.Reference = input.Reference
		current.Notes = input.Notes
		if err := tx.UpdateDraft(ctx, current); err != nil {
			return err
		}
		lines, err := tx.ReplaceLines(ctx, current.ID, input.Lines)
		if err != nil {
			return err
		}
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Delete removes a draft entry and its lines.
func (s *Service) Delete(ctx context.Context, entryID, actorID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return shared.ErrEntryNotDraft
		}
		return tx.DeleteEntry(ctx, entryID)
	})
}

// Post finalises a draft entry so it affects account balances.
func (s *Service) Post(ctx context.Context, input PostInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return shared.ErrEntryNotDraft
		}
		if err := validateLines(toLineInputs(current.Lines)); err != nil {
			return err
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if period.Status != periods.PeriodStatusOpen {
			return shared.ErrPeriodNotOpen
		}
		now := s.now()
		if err := tx.MarkPosted(ctx, current.ID, input.ActorID, now); err != nil {
			return err
		}
		current.Status = JournalStatusPosted
		current.PostedBy = &input.ActorID
		current.PostedAt = &now
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"entry_number": entry.EntryNumber,
				"period_id":    entry.PeriodID,
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// Void flips a posted entry to VOIDED and records the reason. The entry is
// never deleted; a true reversal is a separate new entry.
func (s *Service) Void(ctx context.Context, input VoidInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return JournalEntry{}, shared.ErrVoidReasonRequired
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusPosted {
			return shared.ErrEntryNotPosted
		}
		now := s.now()
		if err := tx.MarkVoided(ctx, current.ID, input.ActorID, input.Reason, now); err != nil {
			return err
		}
		current.Status = JournalStatusVoided
		current.VoidedBy = &input.ActorID
		current.VoidedAt = &now
		current.VoidReason = input.Reason
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "journal.void",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"reason": input.Reason,
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// CreateAndPost creates an entry and posts it in the same transaction.
// Used by subsystems that generate entries (depreciation runs, integration
// events): the entry never commits as a stranded draft, so a source link
// observed by a later delivery always refers to a posted entry.
func (s *Service) CreateAndPost(ctx context.Context, input CreateInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := s.createInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		now := s.now()
		if err := tx.MarkPosted(ctx, created.ID, input.CreatedBy, now); err != nil {
			return err
		}
		actor := input.CreatedBy
		created.Status = JournalStatusPosted
		created.PostedBy = &actor
		created.PostedAt = &now
		entry = created
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ActorID:  input.CreatedBy,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"entry_number": entry.EntryNumber,
				"period_id":    entry.PeriodID,
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// Get loads an entry with its lines.
func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.Get(ctx, entryID)
}

// ListByPeriod returns entries whose date falls inside the period.
func (s *Service) ListByPeriod(ctx context.Context, periodID int64) ([]JournalEntry, error) {
	return s.repo.ListByPeriod(ctx, periodID)
}

// FindBySource resolves the entry linked to an external source reference.
func (s *Service) FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (JournalEntry, error) {
	return s.repo.FindBySource(ctx, module, sourceID)
}

func (s *Service) checkLineAccounts(ctx context.Context, tx TxRepository, lines []LineInput) error {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.AccountID)
	}
	refs, err := tx.GetAccountRefs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]AccountRef, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}
	for _, line := range lines {
		ref, ok := byID[line.AccountID]
		if !ok {
			return shared.ErrAccountNotFound
		}
		if ref.IsHeader || !ref.IsActive {
			return shared.ErrAccountNotPostable
		}
	}
	return nil
}

func toLineInputs(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{AccountID: line.AccountID, Side: line.Side, Amount: line.Amount, Memo: line.Memo})
	}
	return out
}
