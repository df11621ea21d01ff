package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Account, error)
	FindByCode(ctx context.Context, code string) (Account, error)
	FindChildren(ctx context.Context, parentID int64) ([]Account, error)
	List(ctx context.Context) ([]Account, error)
	HasPostings(ctx context.Context, accountID int64) (bool, error)
	HasChildren(ctx context.Context, accountID int64) (bool, error)
	Insert(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	Delete(ctx context.Context, accountID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type, category, normal_balance, is_header, is_system, parent_id, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.NormalBalance, &a.IsHeader, &a.IsSystem, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r *repository) FindByCode(ctx context.Context, code string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
}

func (r *repository) FindChildren(ctx context.Context, parentID int64) ([]Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE parent_id=$1 ORDER BY code`, parentID)
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
}

func (r *repository) query(ctx context.Context, sql string, args ...any) ([]Account, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.NormalBalance, &a.IsHeader, &a.IsSystem, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) HasPostings(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)`, accountID).Scan(&exists)
	return exists, err
}

func (r *repository) HasChildren(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE parent_id=$1)`, accountID).Scan(&exists)
	return exists, err
}

func (r *repository) Insert(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (code, name, type, category, normal_balance, is_header, is_system, parent_id, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		account.Code, account.Name, account.Type, account.Category, account.NormalBalance, account.IsHeader, account.IsSystem, account.ParentID, account.IsActive)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return Account{}, shared.ErrDuplicateAccountCode
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) Update(ctx context.Context, account Account) (Account, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET code=$2, name=$3, type=$4, category=$5, normal_balance=$6, is_active=$7, updated_at=NOW() WHERE id=$1`,
		account.ID, account.Code, account.Name, account.Type, account.Category, account.NormalBalance, account.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, shared.ErrDuplicateAccountCode
		}
		return Account{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Account{}, shared.ErrAccountNotFound
	}
	return account, nil
}

func (r *repository) Delete(ctx context.Context, accountID int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
