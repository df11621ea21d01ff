package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the audit_logs table written by shared.AuditLogger.
type Repository interface {
	Count(ctx context.Context, filters TrailFilters) (int, error)
	Window(ctx context.Context, filters TrailFilters, limit, offset int) ([]TrailRow, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed audit trail repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const trailFilterClause = `
	($1::timestamptz IS NULL OR occurred_at >= $1)
	AND ($2::timestamptz IS NULL OR occurred_at <= $2)
	AND ($3::bigint IS NULL OR actor_id = $3)
	AND ($4::text IS NULL OR entity = $4)
	AND ($5::text IS NULL OR action = $5)`

func (r *pgRepository) Count(ctx context.Context, filters TrailFilters) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE`+trailFilterClause,
		toPgTime(filters.From), toPgTime(filters.To), optionalInt(filters.ActorID),
		optionalText(filters.Entity), optionalText(filters.Action),
	).Scan(&total)
	return total, err
}

func (r *pgRepository) Window(ctx context.Context, filters TrailFilters, limit, offset int) ([]TrailRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
		 FROM audit_logs WHERE`+trailFilterClause+`
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $6 OFFSET $7`,
		toPgTime(filters.From), toPgTime(filters.To), optionalInt(filters.ActorID),
		optionalText(filters.Entity), optionalText(filters.Action),
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TrailRow
	for rows.Next() {
		var row TrailRow
		var meta []byte
		if err := rows.Scan(&row.ID, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta, &row.OccurredAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func optionalInt(value int64) pgtype.Int8 {
	if value <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: value, Valid: true}
}
