package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

type Repository interface {
	Get(ctx context.Context, module, key string) (AccountMapping, error)
	List(ctx context.Context, module string) ([]AccountMapping, error)
	Upsert(ctx context.Context, mapping AccountMapping) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Get resolves the account mapped to a module and key.
func (r *repository) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errors.New("accounting: module and key required")
	}
	var mapping AccountMapping
	err := r.db.QueryRow(ctx, `SELECT module, key, account_id, created_at, updated_at FROM account_mappings WHERE module=$1 AND key=$2`,
		strings.ToUpper(module), key).
		Scan(&mapping.Module, &mapping.Key, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, shared.ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

// List returns all mappings for a module.
func (r *repository) List(ctx context.Context, module string) ([]AccountMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT module, key, account_id, created_at, updated_at FROM account_mappings WHERE module=$1 ORDER BY key`,
		strings.ToUpper(module))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mappings []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// Upsert creates or repoints a mapping.
func (r *repository) Upsert(ctx context.Context, mapping AccountMapping) error {
	if mapping.Module == "" || mapping.Key == "" {
		return errors.New("accounting: module and key required")
	}
	_, err := r.db.Exec(ctx, `INSERT INTO account_mappings (module, key, account_id)
VALUES ($1,$2,$3)
ON CONFLICT (module, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`,
		strings.ToUpper(mapping.Module), mapping.Key, mapping.AccountID)
	return err
}
