package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeCOGS      AccountType = "COGS"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalBalance is the side on which an account type naturally increases.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// Account models a chart of accounts node. Header accounts aggregate their
// children and never accept postings; system accounts keep their code for life.
type Account struct {
	ID            int64
	Code          string
	Name          string
	Type          AccountType
	Category      string
	NormalBalance NormalBalance
	IsHeader      bool
	IsSystem      bool
	ParentID      *int64
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Postable reports whether journal lines may reference this account.
func (a Account) Postable() bool {
	return a.IsActive && !a.IsHeader
}

// CreateInput groups fields required to create an account.
type CreateInput struct {
	Code     string
	Name     string
	IsHeader bool
	IsSystem bool
	ParentID *int64
}

// UpdateInput carries mutable account fields. A nil field is left unchanged.
type UpdateInput struct {
	AccountID int64
	Code      *string
	Name      *string
	IsActive  *bool
}
