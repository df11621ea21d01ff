package fixedassets

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// Repository encapsulates DB operations for assets, categories, and
// depreciation runs. SaveAsset enforces the optimistic version: the update
// only lands when the stored version matches the expected one. Run
// mutations happen through WithTx so a calculation either lands whole or
// not at all.
type Repository interface {
	FindAsset(ctx context.Context, assetID int64) (FixedAsset, error)
	ListAssets(ctx context.Context, status AssetStatus) ([]FixedAsset, error)
	InsertAsset(ctx context.Context, asset FixedAsset) (FixedAsset, error)
	SaveAsset(ctx context.Context, asset FixedAsset, expectedVersion int64) error

	FindCategory(ctx context.Context, categoryID int64) (AssetCategory, error)

	FindRun(ctx context.Context, runID int64) (DepreciationRun, error)
	FindRunByPeriod(ctx context.Context, year, month int) (DepreciationRun, error)
	MarkRunPosted(ctx context.Context, runID, journalEntryID int64) error

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations that run inside a calculation or
// disposal transaction.
type TxRepository interface {
	FindAsset(ctx context.Context, assetID int64) (FixedAsset, error)
	SaveAsset(ctx context.Context, asset FixedAsset, expectedVersion int64) error
	InsertRun(ctx context.Context, run DepreciationRun) (DepreciationRun, error)
	InsertRunLine(ctx context.Context, line DepreciationLine) (DepreciationLine, error)
	DeleteRun(ctx context.Context, runID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

type dbtx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const assetColumns = `id, asset_number, name, category_id, acquisition_date, acquisition_method, acquisition_cost, useful_life_months, salvage_value, method, depreciation_start, accumulated_depreciation, book_value, status, disposed_at, disposal_value, version, created_at, updated_at`

func scanAsset(row pgx.Row) (FixedAsset, error) {
	var a FixedAsset
	err := row.Scan(&a.ID, &a.AssetNumber, &a.Name, &a.CategoryID, &a.AcquisitionDate, &a.AcquisitionMethod, &a.AcquisitionCost, &a.UsefulLifeMonths, &a.SalvageValue, &a.Method, &a.DepreciationStart, &a.AccumulatedDepr, &a.BookValue, &a.Status, &a.DisposedAt, &a.DisposalValue, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return FixedAsset{}, shared.ErrAssetNotFound
	}
	return a, err
}

func findAsset(ctx context.Context, q dbtx, assetID int64) (FixedAsset, error) {
	return scanAsset(q.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id=$1`, assetID))
}

func saveAsset(ctx context.Context, q dbtx, asset FixedAsset, expectedVersion int64) error {
	cmd, err := q.Exec(ctx, `UPDATE fixed_assets
SET accumulated_depreciation=$2, book_value=$3, status=$4, disposed_at=$5, disposal_value=$6, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$7`,
		asset.ID, asset.AccumulatedDepr, asset.BookValue, asset.Status, asset.DisposedAt, asset.DisposalValue, expectedVersion)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrStaleVersion
	}
	return nil
}

func (r *repository) FindAsset(ctx context.Context, assetID int64) (FixedAsset, error) {
	return findAsset(ctx, r.db, assetID)
}

func (r *repository) ListAssets(ctx context.Context, status AssetStatus) ([]FixedAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM fixed_assets ORDER BY asset_number`
	args := []any{}
	if status != "" {
		query = `SELECT ` + assetColumns + ` FROM fixed_assets WHERE status=$1 ORDER BY asset_number`
		args = append(args, status)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assets []FixedAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (r *repository) InsertAsset(ctx context.Context, asset FixedAsset) (FixedAsset, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fixed_assets (asset_number, name, category_id, acquisition_date, acquisition_method, acquisition_cost, useful_life_months, salvage_value, method, depreciation_start, accumulated_depreciation, book_value, status, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id, created_at, updated_at`,
		asset.AssetNumber, asset.Name, asset.CategoryID, asset.AcquisitionDate, asset.AcquisitionMethod, asset.AcquisitionCost, asset.UsefulLifeMonths, asset.SalvageValue, asset.Method, asset.DepreciationStart, asset.AccumulatedDepr, asset.BookValue, asset.Status, asset.Version)
	if err := row.Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt); err != nil {
		return FixedAsset{}, err
	}
	return asset, nil
}

func (r *repository) SaveAsset(ctx context.Context, asset FixedAsset, expectedVersion int64) error {
	return saveAsset(ctx, r.db, asset, expectedVersion)
}

func (r *repository) FindCategory(ctx context.Context, categoryID int64) (AssetCategory, error) {
	var c AssetCategory
	err := r.db.QueryRow(ctx, `SELECT id, name, asset_account_id, accum_depr_account_id, depr_expense_account_id, gain_loss_account_id, declining_annual_rate, default_life_months, default_salvage_percent, created_at, updated_at FROM asset_categories WHERE id=$1`, categoryID).
		Scan(&c.ID, &c.Name, &c.AssetAccountID, &c.AccumDeprAccountID, &c.DeprExpenseAccountID, &c.GainLossAccountID, &c.DecliningAnnualRate, &c.DefaultLifeMonths, &c.DefaultSalvagePercent, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AssetCategory{}, shared.ErrCategoryNotFound
	}
	return c, err
}

const runColumns = `id, year, month, status, total_amount, journal_entry_id, created_by, created_at, updated_at`

func scanRun(row pgx.Row) (DepreciationRun, error) {
	var run DepreciationRun
	err := row.Scan(&run.ID, &run.Year, &run.Month, &run.Status, &run.TotalAmount, &run.JournalEntryID, &run.CreatedBy, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return DepreciationRun{}, shared.ErrRunNotFound
	}
	return run, err
}

func (r *repository) FindRun(ctx context.Context, runID int64) (DepreciationRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM depreciation_runs WHERE id=$1`, runID))
	if err != nil {
		return DepreciationRun{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, run_id, asset_id, amount FROM depreciation_lines WHERE run_id=$1 ORDER BY id`, run.ID)
	if err != nil {
		return DepreciationRun{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line DepreciationLine
		if err := rows.Scan(&line.ID, &line.RunID, &line.AssetID, &line.Amount); err != nil {
			return DepreciationRun{}, err
		}
		run.Lines = append(run.Lines, line)
	}
	return run, rows.Err()
}

func (r *repository) FindRunByPeriod(ctx context.Context, year, month int) (DepreciationRun, error) {
	return scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM depreciation_runs WHERE year=$1 AND month=$2`, year, month))
}

func (r *repository) MarkRunPosted(ctx context.Context, runID, journalEntryID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE depreciation_runs SET status='POSTED', journal_entry_id=$2, updated_at=NOW() WHERE id=$1 AND status='CALCULATED'`,
		runID, journalEntryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrRunAlreadyPosted
	}
	return nil
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

func (t *txRepository) FindAsset(ctx context.Context, assetID int64) (FixedAsset, error) {
	return findAsset(ctx, t.tx, assetID)
}

func (t *txRepository) SaveAsset(ctx context.Context, asset FixedAsset, expectedVersion int64) error {
	return saveAsset(ctx, t.tx, asset, expectedVersion)
}

func (t *txRepository) InsertRun(ctx context.Context, run DepreciationRun) (DepreciationRun, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO depreciation_runs (year, month, status, total_amount, created_by)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		run.Year, run.Month, run.Status, run.TotalAmount, run.CreatedBy)
	if err := row.Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return DepreciationRun{}, err
	}
	return run, nil
}

func (t *txRepository) InsertRunLine(ctx context.Context, line DepreciationLine) (DepreciationLine, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO depreciation_lines (run_id, asset_id, amount) VALUES ($1,$2,$3) RETURNING id`,
		line.RunID, line.AssetID, line.Amount)
	if err := row.Scan(&line.ID); err != nil {
		return DepreciationLine{}, err
	}
	return line, nil
}

func (t *txRepository) DeleteRun(ctx context.Context, runID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM depreciation_lines WHERE run_id=$1`, runID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM depreciation_runs WHERE id=$1 AND status != 'POSTED'`, runID)
	return err
}
