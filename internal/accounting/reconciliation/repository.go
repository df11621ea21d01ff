package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// Repository encapsulates DB operations for reconciliations, bank accounts,
// and bank transactions.
type Repository interface {
	Find(ctx context.Context, reconciliationID int64) (Reconciliation, error)
	FindByAccountPeriod(ctx context.Context, bankAccountID int64, year, month int) (Reconciliation, error)
	ListByAccount(ctx context.Context, bankAccountID int64) ([]Reconciliation, error)
	Insert(ctx context.Context, rec Reconciliation) (Reconciliation, error)
	UpdateStatus(ctx context.Context, reconciliationID int64, status ReconciliationStatus) error
	SaveAdjusted(ctx context.Context, reconciliationID int64, adjustedBank, adjustedBook float64) error
	ClearAdjusted(ctx context.Context, reconciliationID int64) error
	MarkApproved(ctx context.Context, reconciliationID, approverID int64, at time.Time) error

	InsertItem(ctx context.Context, item ReconcilingItem) (ReconcilingItem, error)

	FindBankAccount(ctx context.Context, bankAccountID int64) (BankAccount, error)
	UpdateLastReconciled(ctx context.Context, bankAccountID int64, balance float64, at time.Time) error

	FindTransaction(ctx context.Context, transactionID int64) (BankTransaction, error)
	UnmatchedTransactions(ctx context.Context, bankAccountID int64) ([]BankTransaction, error)
	MarkMatched(ctx context.Context, transactionID, journalLineID, actorID int64, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const reconColumns = `id, bank_account_id, year, month, statement_balance, book_balance, status, adjusted_bank, adjusted_book, approved_by, approved_at, created_by, created_at, updated_at`

func scanRecon(row pgx.Row) (Reconciliation, error) {
	var r Reconciliation
	err := row.Scan(&r.ID, &r.BankAccountID, &r.Year, &r.Month, &r.StatementBalance, &r.BookBalance, &r.Status, &r.AdjustedBank, &r.AdjustedBook, &r.ApprovedBy, &r.ApprovedAt, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reconciliation{}, shared.ErrReconciliationNotFound
	}
	return r, err
}

func (r *repository) Find(ctx context.Context, reconciliationID int64) (Reconciliation, error) {
	rec, err := scanRecon(r.db.QueryRow(ctx, `SELECT `+reconColumns+` FROM bank_reconciliations WHERE id=$1`, reconciliationID))
	if err != nil {
		return Reconciliation{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, reconciliation_id, type, description, amount, date, needs_journal, created_at FROM reconciling_items WHERE reconciliation_id=$1 ORDER BY id`, rec.ID)
	if err != nil {
		return Reconciliation{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item ReconcilingItem
		if err := rows.Scan(&item.ID, &item.ReconciliationID, &item.Type, &item.Description, &item.Amount, &item.Date, &item.NeedsJournal, &item.CreatedAt); err != nil {
			return Reconciliation{}, err
		}
		rec.Items = append(rec.Items, item)
	}
	return rec, rows.Err()
}

func (r *repository) FindByAccountPeriod(ctx context.Context, bankAccountID int64, year, month int) (Reconciliation, error) {
	return scanRecon(r.db.QueryRow(ctx, `SELECT `+reconColumns+` FROM bank_reconciliations WHERE bank_account_id=$1 AND year=$2 AND month=$3`, bankAccountID, year, month))
}

func (r *repository) ListByAccount(ctx context.Context, bankAccountID int64) ([]Reconciliation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reconColumns+` FROM bank_reconciliations WHERE bank_account_id=$1 ORDER BY year DESC, month DESC`, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []Reconciliation
	for rows.Next() {
		rec, err := scanRecon(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *repository) Insert(ctx context.Context, rec Reconciliation) (Reconciliation, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO bank_reconciliations (bank_account_id, year, month, statement_balance, book_balance, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		rec.BankAccountID, rec.Year, rec.Month, rec.StatementBalance, rec.BookBalance, rec.Status, rec.CreatedBy)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Reconciliation{}, shared.ErrDuplicateReconciliation
		}
		return Reconciliation{}, err
	}
	return rec, nil
}

func (r *repository) UpdateStatus(ctx context.Context, reconciliationID int64, status ReconciliationStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bank_reconciliations SET status=$2, updated_at=NOW() WHERE id=$1`, reconciliationID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrReconciliationNotFound
	}
	return nil
}

func (r *repository) SaveAdjusted(ctx context.Context, reconciliationID int64, adjustedBank, adjustedBook float64) error {
	_, err := r.db.Exec(ctx, `UPDATE bank_reconciliations SET adjusted_bank=$2, adjusted_book=$3, updated_at=NOW() WHERE id=$1`,
		reconciliationID, adjustedBank, adjustedBook)
	return err
}

func (r *repository) ClearAdjusted(ctx context.Context, reconciliationID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE bank_reconciliations SET adjusted_bank=NULL, adjusted_book=NULL, updated_at=NOW() WHERE id=$1`, reconciliationID)
	return err
}

func (r *repository) MarkApproved(ctx context.Context, reconciliationID, approverID int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bank_reconciliations SET status='APPROVED', approved_by=$2, approved_at=$3, updated_at=NOW() WHERE id=$1 AND status='COMPLETED'`,
		reconciliationID, approverID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrReconciliationNotCompleted
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item ReconcilingItem) (ReconcilingItem, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO reconciling_items (reconciliation_id, type, description, amount, date, needs_journal)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		item.ReconciliationID, item.Type, item.Description, item.Amount, item.Date, item.NeedsJournal)
	if err := row.Scan(&item.ID, &item.CreatedAt); err != nil {
		return ReconcilingItem{}, err
	}
	return item, nil
}

func (r *repository) FindBankAccount(ctx context.Context, bankAccountID int64) (BankAccount, error) {
	var a BankAccount
	err := r.db.QueryRow(ctx, `SELECT id, name, account_number, bank_name, gl_account_id, last_reconciled_balance, last_reconciled_at, is_active, created_at, updated_at FROM bank_accounts WHERE id=$1`, bankAccountID).
		Scan(&a.ID, &a.Name, &a.AccountNumber, &a.BankName, &a.GLAccountID, &a.LastReconciledBalance, &a.LastReconciledAt, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankAccount{}, shared.ErrBankAccountNotFound
	}
	return a, err
}

func (r *repository) UpdateLastReconciled(ctx context.Context, bankAccountID int64, balance float64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE bank_accounts SET last_reconciled_balance=$2, last_reconciled_at=$3, updated_at=NOW() WHERE id=$1`,
		bankAccountID, balance, at)
	return err
}

const txnColumns = `id, bank_account_id, date, description, amount, status, journal_line_id, matched_by, matched_at, created_at, updated_at`

func scanTxn(row pgx.Row) (BankTransaction, error) {
	var t BankTransaction
	err := row.Scan(&t.ID, &t.BankAccountID, &t.Date, &t.Description, &t.Amount, &t.Status, &t.JournalLineID, &t.MatchedBy, &t.MatchedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankTransaction{}, shared.ErrTransactionNotFound
	}
	return t, err
}

func (r *repository) FindTransaction(ctx context.Context, transactionID int64) (BankTransaction, error) {
	return scanTxn(r.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM bank_transactions WHERE id=$1`, transactionID))
}

func (r *repository) UnmatchedTransactions(ctx context.Context, bankAccountID int64) ([]BankTransaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+txnColumns+` FROM bank_transactions WHERE bank_account_id=$1 AND status='UNMATCHED' ORDER BY date, id`, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []BankTransaction
	for rows.Next() {
		txn, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (r *repository) MarkMatched(ctx context.Context, transactionID, journalLineID, actorID int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bank_transactions SET status='MATCHED', journal_line_id=$2, matched_by=$3, matched_at=$4, updated_at=NOW() WHERE id=$1 AND status='UNMATCHED'`,
		transactionID, journalLineID, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrTransactionMatched
	}
	return nil
}
