package reconciliation

import (
	"fmt"
	"math"
	"time"
)

// LedgerLine is a posted journal line candidate supplied by the caller for
// auto-matching against bank transactions.
type LedgerLine struct {
	LineID      int64
	EntryID     int64
	Date        time.Time
	Amount      float64
	Description string
}

// MatchResult pairs one bank transaction with one ledger line. AutoMatch
// produces results without persisting anything; callers confirm and persist
// the matches they accept.
type MatchResult struct {
	TransactionID int64
	LineID        int64
	EntryID       int64
	DaysApart     int
}

// Matcher is the pluggable auto-match strategy.
type Matcher interface {
	Match(transactions []BankTransaction, candidates []LedgerLine) []MatchResult
}

// AmountDateMatcher matches on exact amount at two decimal places, picking
// the candidate with the nearest date inside the window. Each candidate is
// consumed by at most one transaction.
type AmountDateMatcher struct {
	WindowDays int
}

var _ Matcher = (*AmountDateMatcher)(nil)

func NewAmountDateMatcher(windowDays int) *AmountDateMatcher {
	return &AmountDateMatcher{WindowDays: windowDays}
}

func (m *AmountDateMatcher) Match(transactions []BankTransaction, candidates []LedgerLine) []MatchResult {
	byAmount := make(map[string][]int, len(candidates))
	for i, c := range candidates {
		key := amountKey(c.Amount)
		byAmount[key] = append(byAmount[key], i)
	}
	used := make(map[int]bool, len(candidates))
	var results []MatchResult
	for _, txn := range transactions {
		if txn.Status != MatchStatusUnmatched {
			continue
		}
		best := -1
		bestDays := m.WindowDays + 1
		for _, i := range byAmount[amountKey(txn.Amount)] {
			if used[i] {
				continue
			}
			days := daysApart(txn.Date, candidates[i].Date)
			if days < bestDays {
				best = i
				bestDays = days
			}
		}
		if best < 0 {
			continue
		}
		used[best] = true
		results = append(results, MatchResult{
			TransactionID: txn.ID,
			LineID:        candidates[best].LineID,
			EntryID:       candidates[best].EntryID,
			DaysApart:     bestDays,
		})
	}
	return results
}

func amountKey(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func daysApart(a, b time.Time) int {
	diff := a.Sub(b).Hours() / 24
	return int(math.Abs(math.Round(diff)))
}
