package audit

import (
	"time"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// TrailFilters narrows the audit trail listing.
type TrailFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TrailRow is one recorded lifecycle transition.
type TrailRow struct {
	ID         int64
	ActorID    int64
	Action     string
	Entity     string
	EntityID   string
	Meta       map[string]any
	OccurredAt time.Time
}

// Result bundles a page of trail rows with paging metadata.
type Result struct {
	Rows       []TrailRow
	Pagination shared.Pagination
}
