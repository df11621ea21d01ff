package periods

import "time"

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusLocked PeriodStatus = "LOCKED"
)

// FiscalPeriod is a (year, month) accounting window with its own lifecycle.
// Locked is terminal; Closed may be reopened with a recorded reason.
type FiscalPeriod struct {
	ID           int64
	Year         int
	Month        int
	Status       PeriodStatus
	ClosedBy     *int64
	ClosedAt     *time.Time
	ReopenedBy   *int64
	ReopenedAt   *time.Time
	ReopenReason string
	LockedBy     *int64
	LockedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Previous returns the (year, month) immediately before this period,
// rolling the year backward across January.
func (p FiscalPeriod) Previous() (int, int) {
	return PreviousPeriod(p.Year, p.Month)
}

// PreviousPeriod rolls a (year, month) pair one month backward.
func PreviousPeriod(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// Contains reports whether a date falls inside the period window.
func (p FiscalPeriod) Contains(date time.Time) bool {
	return date.Year() == p.Year && int(date.Month()) == p.Month
}
