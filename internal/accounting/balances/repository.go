package balances

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for balance snapshots and the
// posted-line aggregations that feed live balance computation.
type Repository interface {
	Snapshots(ctx context.Context, year, month int) ([]AccountBalance, error)
	AggregatePostedActivity(ctx context.Context, year, month int) ([]ActivityRow, error)
	PreviousClosings(ctx context.Context, year, month int, accountIDs []int64) (map[int64]float64, error)
	UpsertSnapshot(ctx context.Context, balance AccountBalance) error
	PruneSnapshots(ctx context.Context, year, month int, keepAccountIDs []int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Snapshots(ctx context.Context, year, month int) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.account_id, a.code, a.name, b.year, b.month, a.normal_balance, b.opening_balance, b.debit_total, b.credit_total, b.closing_balance, b.updated_at
FROM account_balances b
JOIN accounts a ON a.id = b.account_id
WHERE b.year=$1 AND b.month=$2
ORDER BY a.code`, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.ID, &b.AccountID, &b.AccountCode, &b.AccountName, &b.Year, &b.Month, &b.NormalBalance, &b.Opening, &b.DebitTotal, &b.CreditTotal, &b.Closing, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *repository) AggregatePostedActivity(ctx context.Context, year, month int) ([]ActivityRow, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	rows, err := r.db.Query(ctx, `SELECT l.account_id, a.code, a.name, a.normal_balance,
COALESCE(SUM(l.amount) FILTER (WHERE l.side='DEBIT'), 0),
COALESCE(SUM(l.amount) FILTER (WHERE l.side='CREDIT'), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.id = l.account_id
WHERE e.status='POSTED' AND e.date >= $1 AND e.date < $2
GROUP BY l.account_id, a.code, a.name, a.normal_balance
ORDER BY a.code`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var activity []ActivityRow
	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(&row.AccountID, &row.AccountCode, &row.AccountName, &row.NormalBalance, &row.DebitTotal, &row.CreditTotal); err != nil {
			return nil, err
		}
		activity = append(activity, row)
	}
	return activity, rows.Err()
}

func (r *repository) PreviousClosings(ctx context.Context, year, month int, accountIDs []int64) (map[int64]float64, error) {
	closings := make(map[int64]float64, len(accountIDs))
	if len(accountIDs) == 0 {
		return closings, nil
	}
	rows, err := r.db.Query(ctx, `SELECT account_id, closing_balance FROM account_balances WHERE year=$1 AND month=$2 AND account_id = ANY($3)`,
		year, month, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var accountID int64
		var closing float64
		if err := rows.Scan(&accountID, &closing); err != nil {
			return nil, err
		}
		closings[accountID] = closing
	}
	return closings, rows.Err()
}

func (r *repository) UpsertSnapshot(ctx context.Context, balance AccountBalance) error {
	_, err := r.db.Exec(ctx, `INSERT INTO account_balances (account_id, year, month, opening_balance, debit_total, credit_total, closing_balance)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (account_id, year, month) DO UPDATE
SET opening_balance=EXCLUDED.opening_balance, debit_total=EXCLUDED.debit_total, credit_total=EXCLUDED.credit_total, closing_balance=EXCLUDED.closing_balance, updated_at=NOW()`,
		balance.AccountID, balance.Year, balance.Month, balance.Opening, balance.DebitTotal, balance.CreditTotal, balance.Closing)
	return err
}

func (r *repository) PruneSnapshots(ctx context.Context, year, month int, keepAccountIDs []int64) error {
	if len(keepAccountIDs) == 0 {
		_, err := r.db.Exec(ctx, `DELETE FROM account_balances WHERE year=$1 AND month=$2`, year, month)
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM account_balances WHERE year=$1 AND month=$2 AND NOT (account_id = ANY($3))`,
		year, month, keepAccountIDs)
	return err
}
