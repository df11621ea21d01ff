package journals

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

type memoryRepo struct {
	periods   map[string]periods.FiscalPeriod
	accounts  map[int64]AccountRef
	entries   map[int64]JournalEntry
	sequences map[int64]int64
	sources   map[string]int64
	nextID    int64

	// failMarkPosted makes MarkPosted fail, to exercise rollback paths.
	failMarkPosted error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		periods:   make(map[string]periods.FiscalPeriod),
		accounts:  make(map[int64]AccountRef),
		entries:   make(map[int64]JournalEntry),
		sequences: make(map[int64]int64),
		sources:   make(map[string]int64),
	}
}

func (r *memoryRepo) addPeriod(id int64, year, month int, status periods.PeriodStatus) {
	r.periods[periodKey(year, month)] = periods.FiscalPeriod{ID: id, Year: year, Month: month, Status: status}
}

func (r *memoryRepo) addAccount(id int64, header, active bool) {
	r.accounts[id] = AccountRef{ID: id, Code: fmt.Sprintf("%04d", 1000+id), IsHeader: header, IsActive: active}
}

func periodKey(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}

func (r *memoryRepo) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	if e, ok := r.entries[entryID]; ok {
		return e, nil
	}
	return JournalEntry{}, shared.ErrJournalNotFound
}

func (r *memoryRepo) ListByPeriod(ctx context.Context, periodID int64) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		if e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (JournalEntry, error) {
	if id, ok := r.sources[module+":"+sourceID.String()]; ok {
		return r.entries[id], nil
	}
	return JournalEntry{}, shared.ErrJournalNotFound
}

// WithTx snapshots the stores and restores them when fn fails, mirroring
// the rollback the pgx transaction gives.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	entries := make(map[int64]JournalEntry, len(r.entries))
	for id, e := range r.entries {
		entries[id] = e
	}
	sequences := make(map[int64]int64, len(r.sequences))
	for id, n := range r.sequences {
		sequences[id] = n
	}
	sources := make(map[string]int64, len(r.sources))
	for key, id := range r.sources {
		sources[key] = id
	}
	nextID := r.nextID
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.entries = entries
		r.sequences = sequences
		r.sources = sources
		r.nextID = nextID
		return err
	}
	return nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	tx.repo.nextID++
	entry.ID = tx.repo.nextID
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	entry := tx.repo.entries[entryID]
	entry.Lines = nil
	out := make([]JournalLine, 0, len(lines))
	for i, line := range lines {
		jl := JournalLine{ID: int64(i + 1), EntryID: entryID, AccountID: line.AccountID, Side: line.Side, Amount: line.Amount, Memo: line.Memo}
		out = append(out, jl)
		entry.Lines = append(entry.Lines, jl)
	}
	tx.repo.entries[entryID] = entry
	return out, nil
}

func (tx *memoryTx) ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	return tx.InsertLines(ctx, entryID, lines)
}

func (tx *memoryTx) UpdateDraft(ctx context.Context, entry JournalEntry) error {
	stored, ok := tx.repo.entries[entry.ID]
	if !ok || stored.Status != JournalStatusDraft {
		return shared.ErrEntryNotDraft
	}
	stored.Description = entry.Description
	stored.Reference = entry.Reference
	stored.Notes = entry.Notes
	tx.repo.entries[entry.ID] = stored
	return nil
}

func (tx *memoryTx) DeleteEntry(ctx context.Context, entryID int64) error {
	stored, ok := tx.repo.entries[entryID]
	if !ok || stored.Status != JournalStatusDraft {
		return shared.ErrEntryNotDraft
	}
	delete(tx.repo.entries, entryID)
	return nil
}

func (tx *memoryTx) MarkPosted(ctx context.Context, entryID, actorID int64, at time.Time) error {
	if tx.repo.failMarkPosted != nil {
		return tx.repo.failMarkPosted
	}
	stored, ok := tx.repo.entries[entryID]
	if !ok || stored.Status != JournalStatusDraft {
		return shared.ErrEntryNotDraft
	}
	stored.Status = JournalStatusPosted
	stored.PostedBy = &actorID
	stored.PostedAt = &at
	tx.repo.entries[entryID] = stored
	return nil
}

func (tx *memoryTx) MarkVoided(ctx context.Context, entryID, actorID int64, reason string, at time.Time) error {
	stored, ok := tx.repo.entries[entryID]
	if !ok || stored.Status != JournalStatusPosted {
		return shared.ErrEntryNotPosted
	}
	stored.Status = JournalStatusVoided
	stored.VoidedBy = &actorID
	stored.VoidedAt = &at
	stored.VoidReason = reason
	tx.repo.entries[entryID] = stored
	return nil
}

func (tx *memoryTx) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	return tx.repo.Get(ctx, entryID)
}

func (tx *memoryTx) NextEntryNumber(ctx context.Context, periodID int64) (int64, error) {
	tx.repo.sequences[periodID]++
	return tx.repo.sequences[periodID], nil
}

func (tx *memoryTx) LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error {
	key := module + ":" + sourceID.String()
	if _, exists := tx.repo.sources[key]; exists {
		return shared.ErrSourceConflict
	}
	tx.repo.sources[key] = entryID
	return nil
}

func (tx *memoryTx) GetAccountRefs(ctx context.Context, accountIDs []int64) ([]AccountRef, error) {
	var refs []AccountRef
	for _, id := range accountIDs {
		if ref, ok := tx.repo.accounts[id]; ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (tx *memoryTx) GetPeriodByDate(ctx context.Context, date time.Time) (periods.FiscalPeriod, error) {
	if p, ok := tx.repo.periods[periodKey(date.Year(), int(date.Month()))]; ok {
		return p, nil
	}
	return periods.FiscalPeriod{}, shared.ErrPeriodNotFound
}

func (tx *memoryTx) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.FiscalPeriod, error) {
	for _, p := range tx.repo.periods {
		if p.ID == periodID {
			return p, nil
		}
	}
	return periods.FiscalPeriod{}, shared.ErrPeriodNotFound
}

func fixture() (*memoryRepo, *Service) {
	repo := newMemoryRepo()
	repo.addPeriod(1, 2025, 1, periods.PeriodStatusOpen)
	repo.addAccount(1, false, true) // cash
	repo.addAccount(2, false, true) // revenue
	repo.addAccount(3, true, true)  // header
	repo.addAccount(4, false, false)
	svc := NewService(repo, nil)
	return repo, svc
}

func balancedInput(amount float64) CreateInput {
	return CreateInput{
		Date:        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "Cash sale",
		CreatedBy:   7,
		Lines: []LineInput{
			{AccountID: 1, Side: SideDebit, Amount: amount},
			{AccountID: 2, Side: SideCredit, Amount: amount},
		},
	}
}

func TestCreateRejectsUnbalancedLines(t *testing.T) {
	_, svc := fixture()
	ctx := context.Background()

	in := balancedInput(1000)
	in.Lines[1].Amount = 999
	_, err := svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	in = balancedInput(1000)
	in.Lines = in.Lines[:1]
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestCreateValidatesAccounts(t *testing.T) {
	_, svc := fixture()
	ctx := context.Background()

	in := balancedInput(500)
	in.Lines[0].AccountID = 99
	_, err := svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)

	in = balancedInput(500)
	in.Lines[0].AccountID = 3
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrAccountNotPostable)

	in = balancedInput(500)
	in.Lines[0].AccountID = 4
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrAccountNotPostable)
}

func TestEntryNumbersIncreaseWithinPeriod(t *testing.T) {
	repo, svc := fixture()
	repo.addPeriod(2, 2025, 2, periods.PeriodStatusOpen)
	ctx := context.Background()

	first, err := svc.Create(ctx, balancedInput(100))
	require.NoError(t, err)
	second, err := svc.Create(ctx, balancedInput(200))
	require.NoError(t, err)
	require.Equal(t, first.EntryNumber+1, second.EntryNumber)

	in := balancedInput(300)
	in.Date = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	febEntry, err := svc.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, int64(1), febEntry.EntryNumber)
}

func TestPostLifecycle(t *testing.T) {
	_, svc := fixture()
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(1000))
	require.NoError(t, err)
	require.Equal(t, JournalStatusDraft, entry.Status)

	posted, err := svc.Post(ctx, PostInput{EntryID: entry.ID, ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	require.Equal(t, int64(9), *posted.PostedBy)

	_, err = svc.Post(ctx, PostInput{EntryID: entry.ID, ActorID: 9})
	require.ErrorIs(t, err, shared.ErrEntryNotDraft)
}

func TestDraftOnlyEditAndDelete(t *testing.T) {
	_, svc := fixture()
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(1000))
	require.NoError(t, err)
	_, err = svc.Post(ctx, PostInput{EntryID: entry.ID, ActorID: 9})
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateInput{
		EntryID:     entry.ID,
		Description: "edited",
		ActorID:     9,
		Lines: []LineInput{
			{AccountID: 1, Side: SideDebit, Amount: 50},
			{AccountID: 2, Side: SideCredit, Amount: 50},
		},
	})
	require.ErrorIs(t, err, shared.ErrEntryNotDraft)

	err = svc.Delete(ctx, entry.ID, 9)
	require.ErrorIs(t, err, shared.ErrEntryNotDraft)
}

func TestVoidRequiresPostedAndReason(t *testing.T) {
	_, svc := fixture()
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(1000))
	require.NoError(t, err)

	_, err = svc.Void(ctx, VoidInput{EntryID: entry.ID, ActorID: 9})
	require.ErrorIs(t, err, shared.ErrVoidReasonRequired)

	_, err = svc.Void(ctx, VoidInput{EntryID: entry.ID, ActorID: 9, Reason: "mistake"})
	require.ErrorIs(t, err, shared.ErrEntryNotPosted)

	_, err = svc.Post(ctx, PostInput{EntryID: entry.ID, ActorID: 9})
	require.NoError(t, err)

	voided, err := svc.Void(ctx, VoidInput{EntryID: entry.ID, ActorID: 9, Reason: "duplicate booking"})
	require.NoError(t, err)
	require.Equal(t, JournalStatusVoided, voided.Status)
	require.Equal(t, "duplicate booking", voided.VoidReason)

	_, err = svc.Void(ctx, VoidInput{EntryID: entry.ID, ActorID: 9, Reason: "again"})
	require.ErrorIs(t, err, shared.ErrEntryNotPosted)
}

func TestSourceLinkIsIdempotent(t *testing.T) {
	_, svc := fixture()
	ctx := context.Background()

	sourceID := uuid.New()
	in := balancedInput(750)
	in.SourceModule = "SALES"
	in.SourceID = sourceID

	first, err := svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)

	found, err := svc.FindBySource(ctx, "SALES", sourceID)
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)
}

func TestCreateAndPostCommitsAsOne(t *testing.T) {
	repo, svc := fixture()
	ctx := context.Background()

	in := balancedInput(500)
	in.SourceModule = "SALES"
	in.SourceID = uuid.New()

	// A posting failure must also roll the creation back: no entry, no
	// source link, no consumed entry number.
	repo.failMarkPosted = errors.New("connection reset")
	_, err := svc.CreateAndPost(ctx, in)
	require.Error(t, err)
	require.Empty(t, repo.entries)
	require.Empty(t, repo.sources)

	repo.failMarkPosted = nil
	entry, err := svc.CreateAndPost(ctx, in)
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, entry.Status)
	require.Equal(t, int64(1), entry.EntryNumber)
	require.NotNil(t, entry.PostedAt)

	found, err := svc.FindBySource(ctx, "SALES", in.SourceID)
	require.NoError(t, err)
	require.Equal(t, entry.ID, found.ID)
	require.Equal(t, JournalStatusPosted, found.Status)
}

func TestCreateRequiresOpenPeriod(t *testing.T) {
	repo, svc := fixture()
	repo.addPeriod(1, 2025, 1, periods.PeriodStatusClosed)
	ctx := context.Background()

	_, err := svc.Create(ctx, balancedInput(100))
	require.ErrorIs(t, err, shared.ErrPeriodNotOpen)
}
