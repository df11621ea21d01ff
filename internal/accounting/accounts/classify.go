package accounts

import (
	"strconv"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// Classification is the result of resolving a 4-digit account code against
// the fixed numeric bands of the chart of accounts.
type Classification struct {
	Type          AccountType
	NormalBalance NormalBalance
	Category      string
}

type codeRange struct {
	lo, hi   int
	category string
}

var typeBands = []struct {
	lo, hi  int
	typ     AccountType
	normal  NormalBalance
	subsets []codeRange
}{
	{1000, 1999, AccountTypeAsset, NormalBalanceDebit, []codeRange{
		{1000, 1399, "CURRENT_ASSET"},
		{1400, 1499, "FIXED_ASSET"},
		{1500, 1599, "ACCUMULATED_DEPRECIATION"},
		{1600, 1999, "OTHER_ASSET"},
	}},
	{2000, 2999, AccountTypeLiability, NormalBalanceCredit, []codeRange{
		{2000, 2499, "CURRENT_LIABILITY"},
		{2500, 2999, "LONG_TERM_LIABILITY"},
	}},
	{3000, 3999, AccountTypeEquity, NormalBalanceCredit, []codeRange{
		{3000, 3999, "EQUITY"},
	}},
	{4000, 4999, AccountTypeRevenue, NormalBalanceCredit, []codeRange{
		{4000, 4499, "OPERATING_REVENUE"},
		{4500, 4999, "OTHER_REVENUE"},
	}},
	{5000, 5999, AccountTypeCOGS, NormalBalanceDebit, []codeRange{
		{5000, 5999, "COST_OF_GOODS_SOLD"},
	}},
	{6000, 9999, AccountTypeExpense, NormalBalanceDebit, []codeRange{
		{6000, 6999, "OPERATING_EXPENSE"},
		{7000, 7999, "PAYROLL_EXPENSE"},
		{8000, 8999, "DEPRECIATION_EXPENSE"},
		{9000, 9999, "OTHER_EXPENSE"},
	}},
}

// Classify resolves a 4-digit numeric code into type, normal balance, and
// category. Codes outside the known bands fail with ErrInvalidAccountCode.
func Classify(code string) (Classification, error) {
	if len(code) != 4 {
		return Classification{}, shared.ErrInvalidAccountCode
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 {
		return Classification{}, shared.ErrInvalidAccountCode
	}
	for _, band := range typeBands {
		if n < band.lo || n > band.hi {
			continue
		}
		cls := Classification{Type: band.typ, NormalBalance: band.normal}
		for _, sub := range band.subsets {
			if n >= sub.lo && n <= sub.hi {
				cls.Category = sub.category
				return cls, nil
			}
		}
		return Classification{}, shared.ErrInvalidAccountCode
	}
	return Classification{}, shared.ErrInvalidAccountCode
}
