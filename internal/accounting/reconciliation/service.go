package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// balanceTolerance absorbs float rounding when comparing adjusted sides.
const balanceTolerance = 0.01

// AuditPort records reconciliation approvals for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// CreateInput starts a reconciliation for a bank account and period.
type CreateInput struct {
	BankAccountID    int64
	Year             int
	Month            int
	StatementBalance float64
	BookBalance      float64
	CreatedBy        int64
}

// MatchInput manually links one bank transaction to one journal line.
type MatchInput struct {
	ReconciliationID int64
	TransactionID    int64
	JournalLineID    int64
	ActorID          int64
}

// ItemInput adds a reconciling item.
type ItemInput struct {
	ReconciliationID int64
	Type             ItemType
	Description      string
	Amount           float64
	Date             time.Time
	NeedsJournal     bool
}

// Service drives the reconciliation lifecycle: Draft -> InProgress ->
// Completed -> Approved. Matching and items only apply while in progress.
type Service struct {
	repo    Repository
	matcher Matcher
	audit   AuditPort
	now     func() time.Time
}

func NewService(repo Repository, matcher Matcher, audit AuditPort) *Service {
	return &Service{repo: repo, matcher: matcher, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// Create opens a draft reconciliation. Only one reconciliation may exist
// per bank account and period.
func (s *Service) Create(ctx context.Context, input CreateInput) (Reconciliation, error) {
	if input.Month < 1 || input.Month > 12 {
		return Reconciliation{}, shared.ErrInvalidMonth
	}
	if _, err := s.repo.FindBankAccount(ctx, input.BankAccountID); err != nil {
		return Reconciliation{}, err
	}
	_, err := s.repo.FindByAccountPeriod(ctx, input.BankAccountID, input.Year, input.Month)
	if err == nil {
		return Reconciliation{}, shared.ErrDuplicateReconciliation
	}
	if !errors.Is(err, shared.ErrReconciliationNotFound) {
		return Reconciliation{}, err
	}
	rec := Reconciliation{
		BankAccountID:    input.BankAccountID,
		Year:             input.Year,
		Month:            input.Month,
		StatementBalance: input.StatementBalance,
		BookBalance:      input.BookBalance,
		Status:           StatusDraft,
		CreatedBy:        input.CreatedBy,
	}
	return s.repo.Insert(ctx, rec)
}

// Start moves a draft reconciliation into the working state.
func (s *Service) Start(ctx context.Context, reconciliationID int64) (Reconciliation, error) {
	rec, err := s.repo.Find(ctx, reconciliationID)
	if err != nil {
		return Reconciliation{}, err
	}
	if rec.Status != StatusDraft {
		return Reconciliation{}, shared.ErrReconciliationNotDraft
	}
	if err := s.repo.UpdateStatus(ctx, rec.ID, StatusInProgress); err != nil {
		return Reconciliation{}, err
	}
	rec.Status = StatusInProgress
	return rec, nil
}

// Match links one unmatched bank transaction to a journal line and stamps
// the matcher identity.
func (s *Service) Match(ctx context.Context, input MatchInput) (BankTransaction, error) {
	rec, err := s.repo.Find(ctx, input.ReconciliationID)
	if err != nil {
		return BankTransaction{}, err
	}
	if rec.Status != StatusInProgress {
		return BankTransaction{}, shared.ErrReconciliationNotInProgress
	}
	txn, err := s.repo.FindTransaction(ctx, input.TransactionID)
	if err != nil {
		return BankTransaction{}, err
	}
	if txn.Status != MatchStatusUnmatched {
		return BankTransaction{}, shared.ErrTransactionMatched
	}
	now := s.now()
	if err := s.repo.MarkMatched(ctx, txn.ID, input.JournalLineID, input.ActorID, now); err != nil {
		return BankTransaction{}, err
	}
	txn.Status = MatchStatusMatched
	txn.JournalLineID = &input.JournalLineID
	txn.MatchedBy = &input.ActorID
	txn.MatchedAt = &now
	return txn, nil
}

// AutoMatch runs the matching strategy over the account's unmatched
// transactions and the supplied candidate lines. It persists nothing;
// callers confirm each proposed match via Match.
func (s *Service) AutoMatch(ctx context.Context, reconciliationID int64, candidates []LedgerLine) ([]MatchResult, error) {
	rec, err := s.repo.Find(ctx, reconciliationID)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusInProgress {
		return nil, shared.ErrReconciliationNotInProgress
	}
	transactions, err := s.repo.UnmatchedTransactions(ctx, rec.BankAccountID)
	if err != nil {
		return nil, err
	}
	return s.matcher.Match(transactions, candidates), nil
}

// AddItem records a reconciling item on an in-progress reconciliation and
// invalidates previously calculated adjusted balances.
func (s *Service) AddItem(ctx context.Context, input ItemInput) (ReconcilingItem, error) {
	if !input.Type.Valid() {
		return ReconcilingItem{}, shared.ErrInvalidItemType
	}
	if input.Amount <= 0 {
		return ReconcilingItem{}, internalshared.Validation("accounting: item amount must be positive")
	}
	if strings.TrimSpace(input.Description) == "" {
		return ReconcilingItem{}, internalshared.Validation("accounting: item description required")
	}
	rec, err := s.repo.Find(ctx, input.ReconciliationID)
	if err != nil {
		return ReconcilingItem{}, err
	}
	if rec.Status != StatusInProgress {
		return ReconcilingItem{}, shared.ErrReconciliationNotInProgress
	}
	item := ReconcilingItem{
		ReconciliationID: rec.ID,
		Type:             input.Type,
		Description:      input.Description,
		Amount:           input.Amount,
		Date:             input.Date,
		NeedsJournal:     input.NeedsJournal,
	}
	inserted, err := s.repo.InsertItem(ctx, item)
	if err != nil {
		return ReconcilingItem{}, err
	}
	if err := s.repo.ClearAdjusted(ctx, rec.ID); err != nil {
		return ReconcilingItem{}, err
	}
	return inserted, nil
}

// CalculateAdjusted derives both adjusted balances from the reconciling
// items and persists them. The two sides agree when the reconciliation is
// fully explained.
func (s *Service) CalculateAdjusted(ctx context.Context, reconciliationID int64) (Reconciliation, error) {
	rec, err := s.repo.Find(ctx, reconciliationID)
	if err != nil {
		return Reconciliation{}, err
	}
	if rec.Status != StatusInProgress {
		return Reconciliation{}, shared.ErrReconciliationNotInProgress
	}
	return s.calculate(ctx, rec)
}

// Complete transitions an in-progress reconciliation to completed,
// calculating adjusted balances first if not already done.
func (s *Service) Complete(ctx context.Context, reconciliationID int64) (Reconciliation, error) {
	rec, err := s.repo.Find(ctx, reconciliationID)
	if err != nil {
		return Reconciliation{}, err
	}
	if rec.Status != StatusInProgress {
		return Reconciliation{}, shared.ErrReconciliationNotInProgress
	}
	if !rec.Calculated() {
		rec, err = s.calculate(ctx, rec)
		if err != nil {
			return Reconciliation{}, err
		}
	}
	if err := s.repo.UpdateStatus(ctx, rec.ID, StatusCompleted); err != nil {
		return Reconciliation{}, err
	}
	rec.Status = StatusCompleted
	return rec, nil
}

// Approve finalizes a completed reconciliation, stamping the approver and
// pushing the adjusted bank balance onto the bank account as its last
// reconciled position.
func (s *Service) Approve(ctx context.Context, reconciliationID, approverID int64) (Reconciliation, error) {
	rec, err := s.repo.Find(ctx, reconciliationID)
	if err != nil {
		return Reconciliation{}, err
	}
	if rec.Status != StatusCompleted {
		return Reconciliation{}, shared.ErrReconciliationNotCompleted
	}
	now := s.now()
	if err := s.repo.MarkApproved(ctx, rec.ID, approverID, now); err != nil {
		return Reconciliation{}, err
	}
	if rec.AdjustedBank != nil {
		if err := s.repo.UpdateLastReconciled(ctx, rec.BankAccountID, *rec.AdjustedBank, now); err != nil {
			return Reconciliation{}, err
		}
	}
	rec.Status = StatusApproved
	rec.ApprovedBy = &approverID
	rec.ApprovedAt = &now
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ActorID:  approverID,
			Action:   "reconciliation.approve",
			Entity:   "bank_reconciliation",
			EntityID: fmt.Sprintf("%d", rec.ID),
			Meta: map[string]any{
				"bank_account_id": rec.BankAccountID,
				"year":            rec.Year,
				"month":           rec.Month,
			},
			At: now,
		})
	}
	return rec, nil
}

// Get fetches a reconciliation with its items.
func (s *Service) Get(ctx context.Context, reconciliationID int64) (Reconciliation, error) {
	return s.repo.Find(ctx, reconciliationID)
}

// ListByAccount lists an account's reconciliations, newest period first.
func (s *Service) ListByAccount(ctx context.Context, bankAccountID int64) ([]Reconciliation, error) {
	return s.repo.ListByAccount(ctx, bankAccountID)
}

// Balanced reports whether the two adjusted sides agree.
func Balanced(rec Reconciliation) bool {
	if !rec.Calculated() {
		return false
	}
	return math.Abs(*rec.AdjustedBank-*rec.AdjustedBook) < balanceTolerance
}

func (s *Service) calculate(ctx context.Context, rec Reconciliation) (Reconciliation, error) {
	adjustedBank := rec.StatementBalance
	adjustedBook := rec.BookBalance
	for _, item := range rec.Items {
		delta := item.Type.Sign() * item.Amount
		if item.Type.AdjustsBank() {
			adjustedBank += delta
		} else {
			adjustedBook += delta
		}
	}
	if err := s.repo.SaveAdjusted(ctx, rec.ID, adjustedBank, adjustedBook); err != nil {
		return Reconciliation{}, err
	}
	rec.AdjustedBank = &adjustedBank
	rec.AdjustedBook = &adjustedBook
	return rec, nil
}
