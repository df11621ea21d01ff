package fixedassets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/accounting/journals"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// LedgerPort posts generated entries into the journal.
type LedgerPort interface {
	CreateAndPost(ctx context.Context, input journals.CreateInput) (journals.JournalEntry, error)
}

// AuditPort records asset lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// CreateAssetInput registers a new draft asset.
type CreateAssetInput struct {
	AssetNumber       string
	Name              string
	CategoryID        int64
	AcquisitionDate   time.Time
	AcquisitionMethod string
	AcquisitionCost   decimal.Decimal
	UsefulLifeMonths  int
	SalvageValue      decimal.Decimal
	Method            DepreciationMethod
	DepreciationStart time.Time
}

// DisposeInput retires an asset at a disposal value.
type DisposeInput struct {
	AssetID           int64
	Version           int64
	DisposalValue     decimal.Decimal
	Date              time.Time
	ActorID           int64
	CreateJournal     bool
	ProceedsAccountID int64
}

// PreviewLine is one asset's computed depreciation for a period preview.
type PreviewLine struct {
	AssetID     int64
	AssetNumber string
	Name        string
	Amount      decimal.Decimal
}

// Preview is the read-only result of a depreciation dry run.
type Preview struct {
	Year  int
	Month int
	Lines []PreviewLine
	Total decimal.Decimal
}

// Service manages fixed assets and their depreciation runs. Asset writes
// carry an optimistic version: stale writes fail with a conflict and the
// caller re-reads and retries.
type Service struct {
	repo   Repository
	ledger LedgerPort
	audit  AuditPort
	now    func() time.Time
}

func NewService(repo Repository, ledger LedgerPort, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// CreateAsset validates and registers a draft asset at full book value.
func (s *Service) CreateAsset(ctx context.Context, input CreateAssetInput) (FixedAsset, error) {
	if strings.TrimSpace(input.Name) == "" {
		return FixedAsset{}, internalshared.Validation("accounting: asset name required")
	}
	if input.AcquisitionCost.LessThanOrEqual(decimal.Zero) {
		return FixedAsset{}, internalshared.Validation("accounting: acquisition cost must be positive")
	}
	if input.UsefulLifeMonths <= 0 {
		return FixedAsset{}, internalshared.Validation("accounting: useful life must be positive")
	}
	if input.SalvageValue.IsNegative() {
		return FixedAsset{}, internalshared.Validation("accounting: salvage value must not be negative")
	}
	if input.SalvageValue.GreaterThan(input.AcquisitionCost) {
		return FixedAsset{}, shared.ErrSalvageExceedsCost
	}
	if _, err := s.repo.FindCategory(ctx, input.CategoryID); err != nil {
		return FixedAsset{}, err
	}
	start := input.DepreciationStart
	if start.IsZero() {
		start = input.AcquisitionDate
	}
	asset := FixedAsset{
		AssetNumber:       input.AssetNumber,
		Name:              input.Name,
		CategoryID:        input.CategoryID,
		AcquisitionDate:   input.AcquisitionDate,
		AcquisitionMethod: input.AcquisitionMethod,
		AcquisitionCost:   input.AcquisitionCost,
		UsefulLifeMonths:  input.UsefulLifeMonths,
		SalvageValue:      input.SalvageValue,
		Method:            input.Method,
		DepreciationStart: start,
		AccumulatedDepr:   decimal.Zero,
		BookValue:         input.AcquisitionCost,
		Status:            AssetDraft,
		Version:           1,
	}
	return s.repo.InsertAsset(ctx, asset)
}

// Activate puts a draft asset into service.
func (s *Service) Activate(ctx context.Context, assetID, version int64) (FixedAsset, error) {
	asset, err := s.repo.FindAsset(ctx, assetID)
	if err != nil {
		return FixedAsset{}, err
	}
	if asset.Status != AssetDraft {
		return FixedAsset{}, shared.ErrAssetNotDraft
	}
	asset.Status = AssetActive
	if err := s.repo.SaveAsset(ctx, asset, version); err != nil {
		return FixedAsset{}, err
	}
	asset.Version = version + 1
	return asset, nil
}

// PreviewRun computes depreciation for a period without persisting
// anything.
func (s *Service) PreviewRun(ctx context.Context, year, month int) (Preview, error) {
	lines, total, err := s.computeLines(ctx, year, month)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Year: year, Month: month, Lines: lines, Total: total}, nil
}

// CalculateRun computes and persists a depreciation run, applying each
// asset's amount to its accumulated depreciation and book value. A period
// already calculated fails unless recalculate is set; a posted run is
// never recalculated. All writes happen in one transaction: a failure
// mid-run leaves no asset touched and no run row behind.
func (s *Service) CalculateRun(ctx context.Context, year, month int, actorID int64, recalculate bool) (DepreciationRun, error) {
	var previous *DepreciationRun
	existing, err := s.repo.FindRunByPeriod(ctx, year, month)
	switch {
	case err == nil:
		if existing.Status == RunPosted {
			return DepreciationRun{}, shared.ErrRunAlreadyPosted
		}
		if !recalculate {
			return DepreciationRun{}, shared.ErrDuplicateRun
		}
		full, err := s.repo.FindRun(ctx, existing.ID)
		if err != nil {
			return DepreciationRun{}, err
		}
		previous = &full
	case errors.Is(err, shared.ErrRunNotFound):
	default:
		return DepreciationRun{}, err
	}

	lines, total, err := s.computeLines(ctx, year, month)
	if err != nil {
		return DepreciationRun{}, err
	}
	run := DepreciationRun{Year: year, Month: month, Status: RunCalculated, TotalAmount: total, CreatedBy: actorID}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if previous != nil {
			if err := s.reverseRun(ctx, tx, *previous); err != nil {
				return err
			}
			if err := tx.DeleteRun(ctx, previous.ID); err != nil {
				return err
			}
		}
		run, err = tx.InsertRun(ctx, run)
		if err != nil {
			return err
		}
		for _, line := range lines {
			asset, err := tx.FindAsset(ctx, line.AssetID)
			if err != nil {
				return err
			}
			updated := ApplyDepreciation(asset, line.Amount)
			if err := tx.SaveAsset(ctx, updated, asset.Version); err != nil {
				return err
			}
			inserted, err := tx.InsertRunLine(ctx, DepreciationLine{RunID: run.ID, AssetID: line.AssetID, Amount: line.Amount})
			if err != nil {
				return err
			}
			run.Lines = append(run.Lines, inserted)
		}
		return nil
	})
	if err != nil {
		return DepreciationRun{}, err
	}
	return run, nil
}

// PostRun books the run total into the journal, debiting depreciation
// expense and crediting accumulated depreciation per category, and marks
// the run posted.
func (s *Service) PostRun(ctx context.Context, runID, actorID int64) (DepreciationRun, error) {
	run, err := s.repo.FindRun(ctx, runID)
	if err != nil {
		return DepreciationRun{}, err
	}
	if run.Status == RunPosted {
		return DepreciationRun{}, shared.ErrRunAlreadyPosted
	}
	if run.Status != RunCalculated {
		return DepreciationRun{}, internalshared.InvalidState("accounting: depreciation run is not calculated")
	}
	if run.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return DepreciationRun{}, internalshared.DomainRule("accounting: depreciation run has no amount to post")
	}

	byCategory := make(map[int64]decimal.Decimal)
	for _, line := range run.Lines {
		asset, err := s.repo.FindAsset(ctx, line.AssetID)
		if err != nil {
			return DepreciationRun{}, err
		}
		byCategory[asset.CategoryID] = byCategory[asset.CategoryID].Add(line.Amount)
	}
	var journalLines []journals.LineInput
	for categoryID, amount := range byCategory {
		category, err := s.repo.FindCategory(ctx, categoryID)
		if err != nil {
			return DepreciationRun{}, err
		}
		journalLines = append(journalLines,
			journals.LineInput{AccountID: category.DeprExpenseAccountID, Side: journals.SideDebit, Amount: amount.InexactFloat64(), Memo: fmt.Sprintf("Depreciation %d-%02d %s", run.Year, run.Month, category.Name)},
			journals.LineInput{AccountID: category.AccumDeprAccountID, Side: journals.SideCredit, Amount: amount.InexactFloat64(), Memo: fmt.Sprintf("Accumulated depreciation %s", category.Name)},
		)
	}

	// Booked on the period's last day so the entry lands in the right
	// fiscal period.
	entryDate := time.Date(run.Year, time.Month(run.Month)+1, 0, 0, 0, 0, 0, time.UTC)
	entry, err := s.ledger.CreateAndPost(ctx, journals.CreateInput{
		Date:        entryDate,
		Description: fmt.Sprintf("Depreciation run %d-%02d", run.Year, run.Month),
		CreatedBy:   actorID,
		Lines:       journalLines,
	})
	if err != nil {
		return DepreciationRun{}, err
	}
	if err := s.repo.MarkRunPosted(ctx, run.ID, entry.ID); err != nil {
		return DepreciationRun{}, err
	}
	run.Status = RunPosted
	run.JournalEntryID = &entry.ID
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ActorID:  actorID,
			Action:   "depreciation.post",
			Entity:   "depreciation_run",
			EntityID: fmt.Sprintf("%d", run.ID),
			Meta:     map[string]any{"journal_entry_id": entry.ID, "total": run.TotalAmount.String()},
			At:       s.now(),
		})
	}
	return run, nil
}

// Dispose retires an asset at the given value, computing the gain or loss
// against book value and, when requested, booking the disposal entry:
// accumulated depreciation and proceeds come in as debits, the asset
// account is credited at cost, and the difference lands on gain/loss.
func (s *Service) Dispose(ctx context.Context, input DisposeInput) (FixedAsset, DisposalOutcome, error) {
	if input.DisposalValue.IsNegative() {
		return FixedAsset{}, DisposalOutcome{}, shared.ErrNegativeDisposal
	}
	asset, err := s.repo.FindAsset(ctx, input.AssetID)
	if err != nil {
		return FixedAsset{}, DisposalOutcome{}, err
	}
	if asset.Status.Retired() {
		return FixedAsset{}, DisposalOutcome{}, shared.ErrAssetRetired
	}
	at := input.Date
	if at.IsZero() {
		at = s.now()
	}
	outcome := ComputeDisposal(asset, input.DisposalValue, at)

	status := AssetDisposed
	if input.DisposalValue.IsZero() {
		status = AssetWrittenOff
	}
	asset.Status = status
	asset.DisposedAt = &at
	value := input.DisposalValue
	asset.DisposalValue = &value
	// The disposal journal posts through the ledger's own transaction; a
	// failure there rolls the asset update back so the asset stays live.
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SaveAsset(ctx, asset, input.Version); err != nil {
			return err
		}
		if input.CreateJournal && s.ledger != nil {
			return s.postDisposal(ctx, asset, outcome, input)
		}
		return nil
	})
	if err != nil {
		return FixedAsset{}, DisposalOutcome{}, err
	}
	asset.Version = input.Version + 1
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "asset.dispose",
			Entity:   "fixed_asset",
			EntityID: fmt.Sprintf("%d", asset.ID),
			Meta: map[string]any{
				"disposal_value": input.DisposalValue.String(),
				"gain_loss":      outcome.GainLoss.String(),
				"status":         string(status),
			},
			At: s.now(),
		})
	}
	return asset, outcome, nil
}

// WriteOff is disposal at zero value.
func (s *Service) WriteOff(ctx context.Context, assetID, version, actorID int64, createJournal bool) (FixedAsset, DisposalOutcome, error) {
	return s.Dispose(ctx, DisposeInput{
		AssetID:       assetID,
		Version:       version,
		DisposalValue: decimal.Zero,
		ActorID:       actorID,
		CreateJournal: createJournal,
	})
}

// GetAsset fetches one asset.
func (s *Service) GetAsset(ctx context.Context, assetID int64) (FixedAsset, error) {
	return s.repo.FindAsset(ctx, assetID)
}

// ListAssets lists assets, optionally filtered by status.
func (s *Service) ListAssets(ctx context.Context, status AssetStatus) ([]FixedAsset, error) {
	return s.repo.ListAssets(ctx, status)
}

// GetRun fetches a run with its lines.
func (s *Service) GetRun(ctx context.Context, runID int64) (DepreciationRun, error) {
	return s.repo.FindRun(ctx, runID)
}

func (s *Service) computeLines(ctx context.Context, year, month int) ([]PreviewLine, decimal.Decimal, error) {
	asOf := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	assets, err := s.repo.ListAssets(ctx, AssetActive)
	if err != nil {
		return nil, decimal.Zero, err
	}
	categories := make(map[int64]AssetCategory)
	var lines []PreviewLine
	total := decimal.Zero
	for _, asset := range assets {
		if !asset.Depreciable(asOf) {
			continue
		}
		category, ok := categories[asset.CategoryID]
		if !ok {
			category, err = s.repo.FindCategory(ctx, asset.CategoryID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			categories[asset.CategoryID] = category
		}
		amount := MonthlyDepreciation(asset, category)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		lines = append(lines, PreviewLine{AssetID: asset.ID, AssetNumber: asset.AssetNumber, Name: asset.Name, Amount: amount})
		total = total.Add(amount)
	}
	return lines, total, nil
}

// reverseRun backs the previous calculation out of each asset so a
// recalculation starts from clean book values. Runs inside the caller's
// transaction.
func (s *Service) reverseRun(ctx context.Context, tx TxRepository, run DepreciationRun) error {
	for _, line := range run.Lines {
		asset, err := tx.FindAsset(ctx, line.AssetID)
		if err != nil {
			return err
		}
		asset.AccumulatedDepr = asset.AccumulatedDepr.Sub(line.Amount)
		asset.BookValue = asset.BookValue.Add(line.Amount)
		if asset.Status == AssetFullyDepreciated {
			asset.Status = AssetActive
		}
		if err := tx.SaveAsset(ctx, asset, asset.Version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) postDisposal(ctx context.Context, asset FixedAsset, outcome DisposalOutcome, input DisposeInput) error {
	category, err := s.repo.FindCategory(ctx, asset.CategoryID)
	if err != nil {
		return err
	}
	var lines []journals.LineInput
	if asset.AccumulatedDepr.GreaterThan(decimal.Zero) {
		lines = append(lines, journals.LineInput{
			AccountID: category.AccumDeprAccountID,
			Side:      journals.SideDebit,
			Amount:    asset.AccumulatedDepr.InexactFloat64(),
			Memo:      "Disposal: reverse accumulated depreciation",
		})
	}
	lines = append(lines, journals.LineInput{
		AccountID: category.AssetAccountID,
		Side:      journals.SideCredit,
		Amount:    asset.AcquisitionCost.InexactFloat64(),
		Memo:      "Disposal: retire asset at cost",
	})
	if outcome.DisposalValue.GreaterThan(decimal.Zero) {
		lines = append(lines, journals.LineInput{
			AccountID: input.ProceedsAccountID,
			Side:      journals.SideDebit,
			Amount:    outcome.DisposalValue.InexactFloat64(),
			Memo:      "Disposal proceeds",
		})
	}
	if !outcome.GainLoss.IsZero() {
		side := journals.SideDebit
		amount := outcome.GainLoss.Neg()
		if outcome.IsGain {
			side = journals.SideCredit
			amount = outcome.GainLoss
		}
		lines = append(lines, journals.LineInput{
			AccountID: category.GainLossAccountID,
			Side:      side,
			Amount:    amount.InexactFloat64(),
			Memo:      "Gain/loss on disposal",
		})
	}
	_, err = s.ledger.CreateAndPost(ctx, journals.CreateInput{
		Date:        outcome.At,
		Description: fmt.Sprintf("Disposal of asset %s", asset.AssetNumber),
		CreatedBy:   input.ActorID,
		Lines:       lines,
	})
	return err
}
