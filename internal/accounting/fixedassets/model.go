package fixedassets

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetStatus enumerates the one-directional asset lifecycle.
type AssetStatus string

const (
	AssetDraft            AssetStatus = "DRAFT"
	AssetActive           AssetStatus = "ACTIVE"
	AssetFullyDepreciated AssetStatus = "FULLY_DEPRECIATED"
	AssetDisposed         AssetStatus = "DISPOSED"
	AssetWrittenOff       AssetStatus = "WRITTEN_OFF"
)

// Retired reports whether the asset has left service permanently.
func (s AssetStatus) Retired() bool {
	return s == AssetDisposed || s == AssetWrittenOff
}

// DepreciationMethod enumerates supported depreciation formulas.
type DepreciationMethod string

const (
	MethodStraightLine     DepreciationMethod = "STRAIGHT_LINE"
	MethodDecliningBalance DepreciationMethod = "DECLINING_BALANCE"
)

// RunStatus enumerates depreciation run states.
type RunStatus string

const (
	RunCalculated RunStatus = "CALCULATED"
	RunPosted     RunStatus = "POSTED"
	RunReversed   RunStatus = "REVERSED"
)

// AssetCategory groups assets, carries the GL accounts depreciation posts
// against, and holds the declining-balance annual rate for its assets.
type AssetCategory struct {
	ID                    int64
	Name                  string
	AssetAccountID        int64
	AccumDeprAccountID    int64
	DeprExpenseAccountID  int64
	GainLossAccountID     int64
	DecliningAnnualRate   decimal.Decimal
	DefaultLifeMonths     int
	DefaultSalvagePercent decimal.Decimal
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// FixedAsset is a depreciable asset. Writes are guarded by the optimistic
// Version counter: a save only succeeds when the expected version matches.
type FixedAsset struct {
	ID                int64
	AssetNumber       string
	Name              string
	CategoryID        int64
	AcquisitionDate   time.Time
	AcquisitionMethod string
	AcquisitionCost   decimal.Decimal
	UsefulLifeMonths  int
	SalvageValue      decimal.Decimal
	Method            DepreciationMethod
	DepreciationStart time.Time
	AccumulatedDepr   decimal.Decimal
	BookValue         decimal.Decimal
	Status            AssetStatus
	DisposedAt        *time.Time
	DisposalValue     *decimal.Decimal
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Depreciable reports whether the asset accrues depreciation as of a date.
func (a FixedAsset) Depreciable(asOf time.Time) bool {
	return a.Status == AssetActive &&
		!a.DepreciationStart.After(asOf) &&
		a.BookValue.GreaterThan(a.SalvageValue)
}

// DepreciationLine is one asset's share of a run.
type DepreciationLine struct {
	ID      int64
	RunID   int64
	AssetID int64
	Amount  decimal.Decimal
}

// DepreciationRun aggregates one period's depreciation across all assets.
type DepreciationRun struct {
	ID             int64
	Year           int
	Month          int
	Status         RunStatus
	TotalAmount    decimal.Decimal
	JournalEntryID *int64
	Lines          []DepreciationLine
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
