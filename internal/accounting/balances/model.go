package balances

import (
	"time"

	"github.com/atlas-erp/atlas-erp/internal/accounting/accounts"
)

// AccountBalance is the per-account activity for one fiscal period. For
// closed periods it is read back from persisted snapshots; for open periods
// it is derived live from posted journal lines.
type AccountBalance struct {
	ID            int64
	AccountID     int64
	AccountCode   string
	AccountName   string
	Year          int
	Month         int
	NormalBalance accounts.NormalBalance
	Opening       float64
	DebitTotal    float64
	CreditTotal   float64
	Closing       float64
	UpdatedAt     time.Time
}

// ActivityRow is a posted debit/credit aggregate for one account within a
// period window.
type ActivityRow struct {
	AccountID     int64
	AccountCode   string
	AccountName   string
	NormalBalance accounts.NormalBalance
	DebitTotal    float64
	CreditTotal   float64
}

// TrialBalance verifies that total debit-side closings equal total
// credit-side closings for a period.
type TrialBalance struct {
	Year         int
	Month        int
	Rows         []AccountBalance
	TotalDebits  float64
	TotalCredits float64
	Difference   float64
	Balanced     bool
	GeneratedAt  time.Time
}

// ClosingBalance applies the normal-balance formula: debit-normal accounts
// grow with debits, credit-normal accounts grow with credits.
func ClosingBalance(normal accounts.NormalBalance, opening, debit, credit float64) float64 {
	if normal == accounts.NormalBalanceDebit {
		return opening + debit - credit
	}
	return opening + credit - debit
}
