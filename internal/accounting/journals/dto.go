package journals

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

// LineInput describes a journal line in a create or update request.
type LineInput struct {
	AccountID int64
	Side      Side
	Amount    float64
	Memo      string
}

// CreateInput groups fields required to create a draft journal entry.
type CreateInput struct {
	Date         time.Time
	Description  string
	Reference    string
	Notes        string
	SourceModule string
	SourceID     uuid.UUID
	CreatedBy    int64
	Lines        []LineInput
}

// UpdateInput replaces the mutable fields of a draft entry.
type UpdateInput struct {
	EntryID     int64
	Description string
	Reference   string
	Notes       string
	ActorID     int64
	Lines       []LineInput
}

// PostInput wraps parameters for posting.
type PostInput struct {
	EntryID int64
	ActorID int64
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}

// Validate ensures the entry date, description, and lines meet minimum
// criteria: at least two lines, positive amounts, valid sides, and total
// debits equal to total credits at two decimal places.
func (in CreateInput) Validate() error {
	if in.Date.IsZero() {
		return errors.New("accounting: entry date required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return errors.New("accounting: description required")
	}
	return validateLines(in.Lines)
}

// Validate applies the line rules to an update request.
func (in UpdateInput) Validate() error {
	if in.EntryID == 0 {
		return errors.New("accounting: entry id required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return errors.New("accounting: description required")
	}
	return validateLines(in.Lines)
}

func validateLines(lines []LineInput) error {
	if len(lines) < 2 {
		return shared.ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range lines {
		if line.AccountID == 0 {
			return fmt.Errorf("accounting: line %d missing account", idx)
		}
		if line.Amount <= 0 {
			return fmt.Errorf("accounting: line %d amount must be positive", idx)
		}
		switch line.Side {
		case SideDebit:
			debit += line.Amount
		case SideCredit:
			credit += line.Amount
		default:
			return fmt.Errorf("accounting: line %d invalid side %q", idx, line.Side)
		}
	}
	if fmt.Sprintf("%.2f", debit) != fmt.Sprintf("%.2f", credit) {
		return shared.ErrUnbalanced
	}
	return nil
}
