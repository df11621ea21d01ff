package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestAmountDateMatcherPicksNearestDate(t *testing.T) {
	matcher := NewAmountDateMatcher(5)
	transactions := []BankTransaction{
		{ID: 1, Date: day(10), Amount: 500, Status: MatchStatusUnmatched},
	}
	candidates := []LedgerLine{
		{LineID: 11, EntryID: 1, Date: day(4), Amount: 500},
		{LineID: 12, EntryID: 2, Date: day(9), Amount: 500},
		{LineID: 13, EntryID: 3, Date: day(10), Amount: 501},
	}

	results := matcher.Match(transactions, candidates)
	require.Len(t, results, 1)
	require.Equal(t, int64(12), results[0].LineID)
	require.Equal(t, 1, results[0].DaysApart)
}

func TestAmountDateMatcherWindowExcludes(t *testing.T) {
	matcher := NewAmountDateMatcher(3)
	transactions := []BankTransaction{
		{ID: 1, Date: day(10), Amount: 500, Status: MatchStatusUnmatched},
	}
	candidates := []LedgerLine{
		{LineID: 11, EntryID: 1, Date: day(4), Amount: 500},
	}

	require.Empty(t, matcher.Match(transactions, candidates))

	wider := NewAmountDateMatcher(7)
	results := wider.Match(transactions, candidates)
	require.Len(t, results, 1)
	require.Equal(t, 6, results[0].DaysApart)
}

func TestAmountDateMatcherConsumesCandidatesOnce(t *testing.T) {
	matcher := NewAmountDateMatcher(5)
	transactions := []BankTransaction{
		{ID: 1, Date: day(10), Amount: 500, Status: MatchStatusUnmatched},
		{ID: 2, Date: day(11), Amount: 500, Status: MatchStatusUnmatched},
	}
	candidates := []LedgerLine{
		{LineID: 11, EntryID: 1, Date: day(10), Amount: 500},
	}

	results := matcher.Match(transactions, candidates)
	require.Len(t, results, 1)
	require.Equal(t, int64(1), results[0].TransactionID)
}

func TestAmountDateMatcherSkipsMatchedTransactions(t *testing.T) {
	matcher := NewAmountDateMatcher(5)
	transactions := []BankTransaction{
		{ID: 1, Date: day(10), Amount: 500, Status: MatchStatusMatched},
	}
	candidates := []LedgerLine{
		{LineID: 11, EntryID: 1, Date: day(10), Amount: 500},
	}

	require.Empty(t, matcher.Match(transactions, candidates))
}
