package fixedassets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/accounting/journals"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

type memoryRepo struct {
	assets     map[int64]FixedAsset
	categories map[int64]AssetCategory
	runs       map[int64]DepreciationRun
	nextID     int64

	// failSaveAt makes the Nth transactional SaveAsset fail.
	failSaveAt int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		assets:     make(map[int64]FixedAsset),
		categories: make(map[int64]AssetCategory),
		runs:       make(map[int64]DepreciationRun),
	}
}

func (r *memoryRepo) FindAsset(ctx context.Context, id int64) (FixedAsset, error) {
	if a, ok := r.assets[id]; ok {
		return a, nil
	}
	return FixedAsset{}, shared.ErrAssetNotFound
}

func (r *memoryRepo) ListAssets(ctx context.Context, status AssetStatus) ([]FixedAsset, error) {
	var out []FixedAsset
	for _, a := range r.assets {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) InsertAsset(ctx context.Context, asset FixedAsset) (FixedAsset, error) {
	r.nextID++
	asset.ID = r.nextID
	r.assets[asset.ID] = asset
	return asset, nil
}

func (r *memoryRepo) SaveAsset(ctx context.Context, asset FixedAsset, expectedVersion int64) error {
	stored, ok := r.assets[asset.ID]
	if !ok {
		return shared.ErrAssetNotFound
	}
	if stored.Version != expectedVersion {
		return shared.ErrStaleVersion
	}
	asset.Version = expectedVersion + 1
	r.assets[asset.ID] = asset
	return nil
}

func (r *memoryRepo) FindCategory(ctx context.Context, id int64) (AssetCategory, error) {
	if c, ok := r.categories[id]; ok {
		return c, nil
	}
	return AssetCategory{}, shared.ErrCategoryNotFound
}

func (r *memoryRepo) FindRun(ctx context.Context, id int64) (DepreciationRun, error) {
	if run, ok := r.runs[id]; ok {
		return run, nil
	}
	return DepreciationRun{}, shared.ErrRunNotFound
}

func (r *memoryRepo) FindRunByPeriod(ctx context.Context, year, month int) (DepreciationRun, error) {
	for _, run := range r.runs {
		if run.Year == year && run.Month == month {
			return run, nil
		}
	}
	return DepreciationRun{}, shared.ErrRunNotFound
}

func (r *memoryRepo) MarkRunPosted(ctx context.Context, runID, entryID int64) error {
	run, ok := r.runs[runID]
	if !ok || run.Status != RunCalculated {
		return shared.ErrRunAlreadyPosted
	}
	run.Status = RunPosted
	run.JournalEntryID = &entryID
	r.runs[runID] = run
	return nil
}

// WithTx runs fn against a scratch copy and only commits it back on
// success, mirroring the rollback the pgx transaction gives.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{
		repo:   r,
		assets: make(map[int64]FixedAsset, len(r.assets)),
		runs:   make(map[int64]DepreciationRun, len(r.runs)),
		nextID: r.nextID,
	}
	for id, a := range r.assets {
		tx.assets[id] = a
	}
	for id, run := range r.runs {
		tx.runs[id] = run
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.assets = tx.assets
	r.runs = tx.runs
	r.nextID = tx.nextID
	return nil
}

type memoryTx struct {
	repo   *memoryRepo
	assets map[int64]FixedAsset
	runs   map[int64]DepreciationRun
	nextID int64
	saves  int
}

func (tx *memoryTx) FindAsset(ctx context.Context, id int64) (FixedAsset, error) {
	if a, ok := tx.assets[id]; ok {
		return a, nil
	}
	return FixedAsset{}, shared.ErrAssetNotFound
}

func (tx *memoryTx) SaveAsset(ctx context.Context, asset FixedAsset, expectedVersion int64) error {
	tx.saves++
	if tx.repo.failSaveAt > 0 && tx.saves == tx.repo.failSaveAt {
		return shared.ErrStaleVersion
	}
	stored, ok := tx.assets[asset.ID]
	if !ok {
		return shared.ErrAssetNotFound
	}
	if stored.Version != expectedVersion {
		return shared.ErrStaleVersion
	}
	asset.Version = expectedVersion + 1
	tx.assets[asset.ID] = asset
	return nil
}

func (tx *memoryTx) InsertRun(ctx context.Context, run DepreciationRun) (DepreciationRun, error) {
	tx.nextID++
	run.ID = tx.nextID
	tx.runs[run.ID] = run
	return run, nil
}

func (tx *memoryTx) InsertRunLine(ctx context.Context, line DepreciationLine) (DepreciationLine, error) {
	tx.nextID++
	line.ID = tx.nextID
	run := tx.runs[line.RunID]
	run.Lines = append(run.Lines, line)
	tx.runs[line.RunID] = run
	return line, nil
}

func (tx *memoryTx) DeleteRun(ctx context.Context, runID int64) error {
	delete(tx.runs, runID)
	return nil
}

type fakeLedger struct {
	entries []journals.CreateInput
	nextID  int64
	err     error
}

func (l *fakeLedger) CreateAndPost(ctx context.Context, input journals.CreateInput) (journals.JournalEntry, error) {
	if l.err != nil {
		return journals.JournalEntry{}, l.err
	}
	l.entries = append(l.entries, input)
	l.nextID++
	return journals.JournalEntry{ID: l.nextID, Status: journals.JournalStatusPosted}, nil
}

func assetFixture() (*memoryRepo, *fakeLedger, *Service) {
	repo := newMemoryRepo()
	repo.categories[1] = AssetCategory{
		ID:                   1,
		Name:                 "Machinery",
		AssetAccountID:       1400,
		AccumDeprAccountID:   1500,
		DeprExpenseAccountID: 8000,
		GainLossAccountID:    4500,
		DecliningAnnualRate:  decimal.NewFromFloat(0.40),
	}
	ledger := &fakeLedger{}
	svc := NewService(repo, ledger, nil)
	return repo, ledger, svc
}

func activeAsset(t *testing.T, svc *Service, cost, salvage, lifeMonths int64) FixedAsset {
	t.Helper()
	asset, err := svc.CreateAsset(context.Background(), CreateAssetInput{
		AssetNumber:      "FA-001",
		Name:             "Lathe",
		CategoryID:       1,
		AcquisitionDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionCost:  dec(cost),
		UsefulLifeMonths: int(lifeMonths),
		SalvageValue:     dec(salvage),
		Method:           MethodStraightLine,
	})
	require.NoError(t, err)
	asset, err = svc.Activate(context.Background(), asset.ID, asset.Version)
	require.NoError(t, err)
	return asset
}

func TestCreateAssetValidation(t *testing.T) {
	_, _, svc := assetFixture()
	ctx := context.Background()

	base := CreateAssetInput{
		AssetNumber:      "FA-001",
		Name:             "Lathe",
		CategoryID:       1,
		AcquisitionDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionCost:  dec(100000),
		UsefulLifeMonths: 60,
		SalvageValue:     dec(10000),
		Method:           MethodStraightLine,
	}

	bad := base
	bad.SalvageValue = dec(200000)
	_, err := svc.CreateAsset(ctx, bad)
	require.ErrorIs(t, err, shared.ErrSalvageExceedsCost)

	bad = base
	bad.AcquisitionCost = dec(0)
	_, err = svc.CreateAsset(ctx, bad)
	require.Error(t, err)

	bad = base
	bad.CategoryID = 99
	_, err = svc.CreateAsset(ctx, bad)
	require.ErrorIs(t, err, shared.ErrCategoryNotFound)

	asset, err := svc.CreateAsset(ctx, base)
	require.NoError(t, err)
	require.Equal(t, AssetDraft, asset.Status)
	require.True(t, base.AcquisitionCost.Equal(asset.BookValue))
	require.Equal(t, int64(1), asset.Version)
}

func TestOptimisticVersioning(t *testing.T) {
	repo, _, svc := assetFixture()
	ctx := context.Background()
	asset := activeAsset(t, svc, 100000, 10000, 60)

	// A write with the stored version succeeds and bumps it.
	stored := repo.assets[asset.ID]
	require.Equal(t, int64(2), stored.Version)

	// A write with a stale version is rejected and changes nothing.
	_, _, err := svc.Dispose(ctx, DisposeInput{AssetID: asset.ID, Version: 1, DisposalValue: dec(50000), ActorID: 1})
	require.ErrorIs(t, err, shared.ErrStaleVersion)
	require.Equal(t, AssetActive, repo.assets[asset.ID].Status)

	_, _, err = svc.Dispose(ctx, DisposeInput{AssetID: asset.ID, Version: 2, DisposalValue: dec(50000), ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, AssetDisposed, repo.assets[asset.ID].Status)
}

func TestCalculateRunAppliesDepreciation(t *testing.T) {
	repo, _, svc := assetFixture()
	ctx := context.Background()
	asset := activeAsset(t, svc, 1200000, 0, 12)

	run, err := svc.CalculateRun(ctx, 2024, 1, 5, false)
	require.NoError(t, err)
	require.Equal(t, RunCalculated, run.Status)
	require.Len(t, run.Lines, 1)
	require.True(t, dec(100000).Equal(run.TotalAmount), "total %s", run.TotalAmount)

	updated := repo.assets[asset.ID]
	require.True(t, dec(100000).Equal(updated.AccumulatedDepr))
	require.True(t, dec(1100000).Equal(updated.BookValue))

	_, err = svc.CalculateRun(ctx, 2024, 1, 5, false)
	require.ErrorIs(t, err, shared.ErrDuplicateRun)

	// Recalculation reverses the first run before applying again.
	run2, err := svc.CalculateRun(ctx, 2024, 1, 5, true)
	require.NoError(t, err)
	require.True(t, dec(100000).Equal(run2.TotalAmount))
	require.True(t, dec(100000).Equal(repo.assets[asset.ID].AccumulatedDepr))
}

func TestCalculateRunFailureLeavesNothingBehind(t *testing.T) {
	repo, _, svc := assetFixture()
	ctx := context.Background()
	first := activeAsset(t, svc, 1200000, 0, 12)

	second, err := svc.CreateAsset(ctx, CreateAssetInput{
		AssetNumber:      "FA-002",
		Name:             "Press",
		CategoryID:       1,
		AcquisitionDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AcquisitionCost:  dec(2400000),
		UsefulLifeMonths: 24,
		Method:           MethodStraightLine,
	})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, second.ID, second.Version)
	require.NoError(t, err)

	// The second asset write fails mid-run; the whole run must roll back.
	repo.failSaveAt = 2
	_, err = svc.CalculateRun(ctx, 2024, 1, 5, false)
	require.ErrorIs(t, err, shared.ErrStaleVersion)

	require.True(t, decimal.Zero.Equal(repo.assets[first.ID].AccumulatedDepr))
	require.True(t, decimal.Zero.Equal(repo.assets[second.ID].AccumulatedDepr))
	require.Empty(t, repo.runs)

	// A clean retry succeeds from the untouched state.
	repo.failSaveAt = 0
	run, err := svc.CalculateRun(ctx, 2024, 1, 5, false)
	require.NoError(t, err)
	require.Len(t, run.Lines, 2)
	require.True(t, dec(200000).Equal(run.TotalAmount), "total %s", run.TotalAmount)
}

func TestDisposeRollsBackWhenJournalFails(t *testing.T) {
	repo, ledger, svc := assetFixture()
	ctx := context.Background()
	asset := activeAsset(t, svc, 100000, 0, 60)

	ledger.err = errors.New("ledger unavailable")
	_, _, err := svc.Dispose(ctx, DisposeInput{
		AssetID:           asset.ID,
		Version:           asset.Version,
		DisposalValue:     dec(50000),
		ActorID:           1,
		CreateJournal:     true,
		ProceedsAccountID: 1010,
	})
	require.Error(t, err)

	stored := repo.assets[asset.ID]
	require.Equal(t, AssetActive, stored.Status)
	require.Nil(t, stored.DisposedAt)
	require.Equal(t, asset.Version, stored.Version)

	ledger.err = nil
	_, _, err = svc.Dispose(ctx, DisposeInput{
		AssetID:           asset.ID,
		Version:           asset.Version,
		DisposalValue:     dec(50000),
		ActorID:           1,
		CreateJournal:     true,
		ProceedsAccountID: 1010,
	})
	require.NoError(t, err)
	require.Equal(t, AssetDisposed, repo.assets[asset.ID].Status)
}

func TestPostRunCreatesBalancedEntry(t *testing.T) {
	_, ledger, svc := assetFixture()
	ctx := context.Background()
	activeAsset(t, svc, 1200000, 0, 12)

	run, err := svc.CalculateRun(ctx, 2024, 1, 5, false)
	require.NoError(t, err)

	posted, err := svc.PostRun(ctx, run.ID, 5)
	require.NoError(t, err)
	require.Equal(t, RunPosted, posted.Status)
	require.NotNil(t, posted.JournalEntryID)

	require.Len(t, ledger.entries, 1)
	entry := ledger.entries[0]
	require.Len(t, entry.Lines, 2)
	require.Equal(t, journals.SideDebit, entry.Lines[0].Side)
	require.Equal(t, int64(8000), entry.Lines[0].AccountID)
	require.Equal(t, journals.SideCredit, entry.Lines[1].Side)
	require.Equal(t, int64(1500), entry.Lines[1].AccountID)
	require.InDelta(t, 100000.0, entry.Lines[0].Amount, 0.001)

	_, err = svc.PostRun(ctx, run.ID, 5)
	require.ErrorIs(t, err, shared.ErrRunAlreadyPosted)
}

func TestDisposeGeneratesJournal(t *testing.T) {
	repo, ledger, svc := assetFixture()
	ctx := context.Background()
	asset := activeAsset(t, svc, 10000000, 1000000, 100)

	// Accrue half the cost so book value sits at 5,000,000.
	current := repo.assets[asset.ID]
	current.AccumulatedDepr = dec(5000000)
	current.BookValue = dec(5000000)
	repo.assets[asset.ID] = current

	_, outcome, err := svc.Dispose(ctx, DisposeInput{
		AssetID:           asset.ID,
		Version:           current.Version,
		DisposalValue:     dec(6000000),
		ActorID:           5,
		CreateJournal:     true,
		ProceedsAccountID: 1010,
	})
	require.NoError(t, err)
	require.True(t, outcome.IsGain)
	require.True(t, dec(1000000).Equal(outcome.GainLoss))

	require.Len(t, ledger.entries, 1)
	entry := ledger.entries[0]
	var debits, credits float64
	for _, line := range entry.Lines {
		if line.Side == journals.SideDebit {
			debits += line.Amount
		} else {
			credits += line.Amount
		}
	}
	require.InDelta(t, debits, credits, 0.001)
}

func TestDisposeRejectsNegativeAndRetired(t *testing.T) {
	repo, _, svc := assetFixture()
	ctx := context.Background()
	asset := activeAsset(t, svc, 100000, 0, 60)

	_, _, err := svc.Dispose(ctx, DisposeInput{AssetID: asset.ID, Version: 2, DisposalValue: dec(-1), ActorID: 1})
	require.ErrorIs(t, err, shared.ErrNegativeDisposal)

	_, _, err = svc.WriteOff(ctx, asset.ID, 2, 1, false)
	require.NoError(t, err)
	require.Equal(t, AssetWrittenOff, repo.assets[asset.ID].Status)

	_, _, err = svc.Dispose(ctx, DisposeInput{AssetID: asset.ID, Version: 3, DisposalValue: dec(10), ActorID: 1})
	require.ErrorIs(t, err, shared.ErrAssetRetired)
}
