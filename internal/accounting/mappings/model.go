package mappings

import "time"

// AccountMapping links an integration key (e.g. "sales.order.revenue") to
// the ledger account entries for that key post against.
type AccountMapping struct {
	Module    string
	Key       string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
