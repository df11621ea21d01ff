package journals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// Repository encapsulates DB operations for journal entries. Period lookups
// needed inside entry transactions are exposed here as well so lifecycle
// checks happen under the same transaction.
type Repository interface {
	Get(ctx context.Context, entryID int64) (JournalEntry, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]JournalEntry, error)
	FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error)
	ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error)
	UpdateDraft(ctx context.Context, entry JournalEntry) error
	DeleteEntry(ctx context.Context, entryID int64) error
	MarkPosted(ctx context.Context, entryID, actorID int64, at time.Time) error
	MarkVoided(ctx context.Context, entryID, actorID int64, reason string, at time.Time) error
	GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	NextEntryNumber(ctx context.Context, periodID int64) (int64, error)
	LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error
	GetAccountRefs(ctx context.Context, accountIDs []int64) ([]AccountRef, error)

	// Period lookups needed within journal transactions.
	GetPeriodByDate(ctx context.Context, date time.Time) (periods.FiscalPeriod, error)
	GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.FiscalPeriod, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, entry_number, period_id, date, description, reference, notes, status, source_module, source_id, created_by, posted_by, posted_at, voided_by, voided_at, void_reason, created_at, updated_at`

func (r *repository) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, r.db, entryID)
}

func (r *repository) ListByPeriod(ctx context.Context, periodID int64) ([]JournalEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE period_id=$1 ORDER BY entry_number`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *repository) FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (JournalEntry, error) {
	var entryID int64
	err := r.db.QueryRow(ctx, `SELECT je_id FROM source_links WHERE module=$1 AND ref_id=$2`, module, sourceID).Scan(&entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	return getEntryWithLines(ctx, r.db, entryID)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.EntryNumber, &e.PeriodID, &e.Date, &e.Description, &e.Reference, &e.Notes, &e.Status, &e.SourceModule, &e.SourceID, &e.CreatedBy, &e.PostedBy, &e.PostedAt, &e.VoidedBy, &e.VoidedAt, &e.VoidReason, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func getEntryWithLines(ctx context.Context, q queryer, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, side, amount, memo, created_at, updated_at FROM journal_lines WHERE entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Side, &line.Amount, &line.Memo, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_number, period_id, date, description, reference, notes, status, source_module, source_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		entry.EntryNumber, entry.PeriodID, entry.Date, entry.Description, entry.Reference, entry.Notes, entry.Status, entry.SourceModule, entry.SourceID, entry.CreatedBy)
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		var inserted JournalLine
		row := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, side, amount, memo)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
			entryID, line.AccountID, line.Side, line.Amount, line.Memo)
		if err := row.Scan(&inserted.ID, &inserted.CreatedAt, &inserted.UpdatedAt); err != nil {
			return nil, err
		}
		inserted.EntryID = entryID
		inserted.AccountID = line.AccountID
		inserted.Side = line.Side
		inserted.Amount = line.Amount
		inserted.Memo = line.Memo
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return nil, err
	}
	return r.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) UpdateDraft(ctx context.Context, entry JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET description=$2, reference=$3, notes=$4, updated_at=NOW() WHERE id=$1 AND status='DRAFT'`,
		entry.ID, entry.Description, entry.Reference, entry.Notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotDraft
	}
	return nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, entryID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1 AND status='DRAFT'`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotDraft
	}
	return nil
}

func (r *txRepository) MarkPosted(ctx context.Context, entryID, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='POSTED', posted_by=$2, posted_at=$3, updated_at=NOW() WHERE id=$1 AND status='DRAFT'`, entryID, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotDraft
	}
	return nil
}

func (r *txRepository) MarkVoided(ctx context.Context, entryID, actorID int64, reason string, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='VOIDED', voided_by=$2, voided_at=$3, void_reason=$4, updated_at=NOW() WHERE id=$1 AND status='POSTED'`, entryID, actorID, at, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotPosted
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, r.tx, entryID)
}

// NextEntryNumber allocates the next sequence value scoped to the period.
func (r *txRepository) NextEntryNumber(ctx context.Context, periodID int64) (int64, error) {
	var number int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (period_id, next_number) VALUES ($1, 2)
ON CONFLICT (period_id) DO UPDATE SET next_number = journal_sequences.next_number + 1
RETURNING next_number - 1`, periodID).Scan(&number)
	return number, err
}

func (r *txRepository) LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (module, ref_id, je_id) VALUES ($1,$2,$3)`, module, sourceID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrSourceConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) GetAccountRefs(ctx context.Context, accountIDs []int64) ([]AccountRef, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, code, is_header, is_active FROM accounts WHERE id = ANY($1)`, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []AccountRef
	for rows.Next() {
		var ref AccountRef
		if err := rows.Scan(&ref.ID, &ref.Code, &ref.IsHeader, &ref.IsActive); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

const periodColumns = `id, year, month, status, closed_by, closed_at, reopened_by, reopened_at, reopen_reason, locked_by, locked_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (periods.FiscalPeriod, error) {
	var p periods.FiscalPeriod
	err := row.Scan(&p.ID, &p.Year, &p.Month, &p.Status, &p.ClosedBy, &p.ClosedAt, &p.ReopenedBy, &p.ReopenedAt, &p.ReopenReason, &p.LockedBy, &p.LockedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetPeriodByDate resolves the fiscal period covering the entry date.
func (r *txRepository) GetPeriodByDate(ctx context.Context, date time.Time) (periods.FiscalPeriod, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE year=$1 AND month=$2`, date.Year(), int(date.Month())))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.FiscalPeriod{}, shared.ErrPeriodNotFound
		}
		return periods.FiscalPeriod{}, err
	}
	return p, nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.FiscalPeriod, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id=$1 FOR UPDATE`, periodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.FiscalPeriod{}, shared.ErrPeriodNotFound
		}
		return periods.FiscalPeriod{}, err
	}
	return p, nil
}
