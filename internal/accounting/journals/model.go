package journals

import (
	"time"

	"github.com/google/uuid"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
	JournalStatusVoided JournalStatus = "VOIDED"
)

// Side is the direction of a journal line.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// JournalEntry is a balanced set of debit/credit lines recording one
// business event. The entry number is sequential within its fiscal period.
type JournalEntry struct {
	ID           int64
	EntryNumber  int64
	PeriodID     int64
	Date         time.Time
	Description  string
	Reference    string
	Notes        string
	Status       JournalStatus
	SourceModule string
	SourceID     uuid.UUID
	CreatedBy    int64
	PostedBy     *int64
	PostedAt     *time.Time
	VoidedBy     *int64
	VoidedAt     *time.Time
	VoidReason   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []JournalLine
}

// JournalLine stores a single debit or credit movement against one
// detail account.
type JournalLine struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Side      Side
	Amount    float64
	Memo      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountRef is the slice of account state checked when validating lines.
type AccountRef struct {
	ID       int64
	Code     string
	IsHeader bool
	IsActive bool
}
