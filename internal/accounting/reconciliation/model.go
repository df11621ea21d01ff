package reconciliation

import "time"

// ReconciliationStatus enumerates the reconciliation lifecycle.
type ReconciliationStatus string

const (
	StatusDraft      ReconciliationStatus = "DRAFT"
	StatusInProgress ReconciliationStatus = "IN_PROGRESS"
	StatusCompleted  ReconciliationStatus = "COMPLETED"
	StatusApproved   ReconciliationStatus = "APPROVED"
)

// MatchStatus enumerates bank transaction match states.
type MatchStatus string

const (
	MatchStatusUnmatched MatchStatus = "UNMATCHED"
	MatchStatusMatched   MatchStatus = "MATCHED"
)

// ItemType enumerates reconciling item categories. The category decides
// which side the item adjusts and in which direction.
type ItemType string

const (
	ItemOutstandingCheck ItemType = "OUTSTANDING_CHECK"
	ItemDepositInTransit ItemType = "DEPOSIT_IN_TRANSIT"
	ItemBankFee          ItemType = "BANK_FEE"
	ItemInterestEarned   ItemType = "INTEREST_EARNED"
)

// AdjustsBank reports whether the item corrects the bank statement side.
// Outstanding checks and deposits in transit are recorded in the books but
// not yet reflected by the bank; fees and interest are the reverse.
func (t ItemType) AdjustsBank() bool {
	return t == ItemOutstandingCheck || t == ItemDepositInTransit
}

// Sign returns the direction the item moves its side's balance.
func (t ItemType) Sign() float64 {
	switch t {
	case ItemOutstandingCheck, ItemBankFee:
		return -1
	default:
		return 1
	}
}

// Valid reports whether the item type is known.
func (t ItemType) Valid() bool {
	switch t {
	case ItemOutstandingCheck, ItemDepositInTransit, ItemBankFee, ItemInterestEarned:
		return true
	}
	return false
}

// BankAccount links a physical bank account to its GL cash account and
// remembers the last approved reconciliation.
type BankAccount struct {
	ID                    int64
	Name                  string
	AccountNumber         string
	BankName              string
	GLAccountID           int64
	LastReconciledBalance *float64
	LastReconciledAt      *time.Time
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// BankTransaction is one statement line imported for matching.
type BankTransaction struct {
	ID            int64
	BankAccountID int64
	Date          time.Time
	Description   string
	Amount        float64
	Status        MatchStatus
	JournalLineID *int64
	MatchedBy     *int64
	MatchedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReconcilingItem is a known difference between bank and book not yet
// reflected on both sides.
type ReconcilingItem struct {
	ID               int64
	ReconciliationID int64
	Type             ItemType
	Description      string
	Amount           float64
	Date             time.Time
	NeedsJournal     bool
	CreatedAt        time.Time
}

// Reconciliation is one bank account's reconciliation for one fiscal
// period. Adjusted balances stay nil until calculated.
type Reconciliation struct {
	ID               int64
	BankAccountID    int64
	Year             int
	Month            int
	StatementBalance float64
	BookBalance      float64
	Status           ReconciliationStatus
	AdjustedBank     *float64
	AdjustedBook     *float64
	Items            []ReconcilingItem
	ApprovedBy       *int64
	ApprovedAt       *time.Time
	CreatedBy        int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Calculated reports whether adjusted balances have been derived.
func (r Reconciliation) Calculated() bool {
	return r.AdjustedBank != nil && r.AdjustedBook != nil
}
