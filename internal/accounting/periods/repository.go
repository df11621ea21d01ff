package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// Repository encapsulates DB operations for fiscal periods.
type Repository interface {
	FindByID(ctx context.Context, periodID int64) (FiscalPeriod, error)
	FindByYearMonth(ctx context.Context, year, month int) (FiscalPeriod, error)
	List(ctx context.Context, year int) ([]FiscalPeriod, error)
	Insert(ctx context.Context, period FiscalPeriod) (FiscalPeriod, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Draft entry
// counting queries the journal tables directly so the close check runs
// under the same transaction as the status transition.
type TxRepository interface {
	GetForUpdate(ctx context.Context, periodID int64) (FiscalPeriod, error)
	GetByYearMonth(ctx context.Context, year, month int) (FiscalPeriod, error)
	CountDraftEntries(ctx context.Context, periodID int64) (int64, error)
	MarkClosed(ctx context.Context, periodID, actorID int64, at time.Time) error
	MarkReopened(ctx context.Context, periodID, actorID int64, reason string, at time.Time) error
	MarkLocked(ctx context.Context, periodID, actorID int64, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, year, month, status, closed_by, closed_at, reopened_by, reopened_at, reopen_reason, locked_by, locked_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (FiscalPeriod, error) {
	var p FiscalPeriod
	err := row.Scan(&p.ID, &p.Year, &p.Month, &p.Status, &p.ClosedBy, &p.ClosedAt, &p.ReopenedBy, &p.ReopenedAt, &p.ReopenReason, &p.LockedBy, &p.LockedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FiscalPeriod{}, shared.ErrPeriodNotFound
	}
	return p, err
}

func (r *repository) FindByID(ctx context.Context, periodID int64) (FiscalPeriod, error) {
	return scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id=$1`, periodID))
}

func (r *repository) FindByYearMonth(ctx context.Context, year, month int) (FiscalPeriod, error) {
	return scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE year=$1 AND month=$2`, year, month))
}

func (r *repository) List(ctx context.Context, year int) ([]FiscalPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods ORDER BY year, month`
	args := []any{}
	if year != 0 {
		query = `SELECT ` + periodColumns + ` FROM fiscal_periods WHERE year=$1 ORDER BY month`
		args = append(args, year)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []FiscalPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) Insert(ctx context.Context, period FiscalPeriod) (FiscalPeriod, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fiscal_periods (year, month, status) VALUES ($1,$2,$3) RETURNING id, created_at, updated_at`,
		period.Year, period.Month, period.Status)
	if err := row.Scan(&period.ID, &period.CreatedAt, &period.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return FiscalPeriod{}, shared.ErrDuplicatePeriod
		}
		return FiscalPeriod{}, err
	}
	return period, nil
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

func (r *txRepository) GetForUpdate(ctx context.Context, periodID int64) (FiscalPeriod, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id=$1 FOR UPDATE`, periodID))
}

func (r *txRepository) GetByYearMonth(ctx context.Context, year, month int) (FiscalPeriod, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE year=$1 AND month=$2`, year, month))
}

func (r *txRepository) CountDraftEntries(ctx context.Context, periodID int64) (int64, error) {
	var count int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE period_id=$1 AND status='DRAFT'`, periodID).Scan(&count)
	return count, err
}

func (r *txRepository) MarkClosed(ctx context.Context, periodID, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE fiscal_periods SET status='CLOSED', closed_by=$2, closed_at=$3, updated_at=NOW() WHERE id=$1 AND status='OPEN'`,
		periodID, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotOpen
	}
	return nil
}

func (r *txRepository) MarkReopened(ctx context.Context, periodID, actorID int64, reason string, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE fiscal_periods SET status='OPEN', reopened_by=$2, reopened_at=$3, reopen_reason=$4, updated_at=NOW() WHERE id=$1 AND status='CLOSED'`,
		periodID, actorID, at, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotClosed
	}
	return nil
}

func (r *txRepository) MarkLocked(ctx context.Context, periodID, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE fiscal_periods SET status='LOCKED', locked_by=$2, locked_at=$3, updated_at=NOW() WHERE id=$1 AND status='CLOSED'`,
		periodID, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotClosed
	}
	return nil
}
