package shared

import "github.com/atlas-erp/atlas-erp/internal/shared"

var (
	// ErrAccountNotFound indicates a missing chart of accounts entry.
	ErrAccountNotFound = shared.NotFound("accounting: account not found")
	// ErrDuplicateAccountCode indicates the code is already in use.
	ErrDuplicateAccountCode = shared.Conflict("accounting: account code already in use")
	// ErrSystemAccountCode indicates an attempt to change a system account code.
	ErrSystemAccountCode = shared.Conflict("accounting: system account code is immutable")
	// ErrInvalidAccountCode indicates the code does not fall inside a known band.
	ErrInvalidAccountCode = shared.Validation("accounting: account code outside classification ranges")
	// ErrAccountNotPostable indicates the line references a header or inactive account.
	ErrAccountNotPostable = shared.Validation("accounting: account does not accept postings")
	// ErrAccountHasPostings blocks deletion of accounts with journal activity.
	ErrAccountHasPostings = shared.InvalidState("accounting: account has postings")
	// ErrAccountHasChildren blocks deletion of header accounts with children.
	ErrAccountHasChildren = shared.InvalidState("accounting: account has child accounts")

	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = shared.Validation("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = shared.Validation("accounting: journal requires at least two lines")
	// ErrJournalNotFound indicates a missing entry.
	ErrJournalNotFound = shared.NotFound("accounting: journal entry not found")
	// ErrEntryNotDraft indicates edit/delete/post attempted on a non-draft entry.
	ErrEntryNotDraft = shared.InvalidState("accounting: journal entry is not draft")
	// ErrEntryNotPosted indicates void attempted on a non-posted entry.
	ErrEntryNotPosted = shared.InvalidState("accounting: journal entry is not posted")
	// ErrVoidReasonRequired indicates voiding without a reason.
	ErrVoidReasonRequired = shared.Validation("accounting: void reason required")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = shared.Conflict("accounting: source already linked")
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = shared.Conflict("accounting: source link conflict")

	// ErrPeriodNotFound indicates a missing fiscal period.
	ErrPeriodNotFound = shared.NotFound("accounting: fiscal period not found")
	// ErrDuplicatePeriod indicates the (year, month) pair already exists.
	ErrDuplicatePeriod = shared.Conflict("accounting: fiscal period already exists")
	// ErrInvalidMonth indicates month outside 1-12.
	ErrInvalidMonth = shared.Validation("accounting: month must be between 1 and 12")
	// ErrYearOutOfRange indicates a fiscal year outside 1900-9999.
	ErrYearOutOfRange = shared.Validation("accounting: year out of range")
	// ErrPeriodNotOpen indicates posting into a closed or locked period.
	ErrPeriodNotOpen = shared.InvalidState("accounting: period is not open")
	// ErrPeriodNotClosed indicates lock/reopen on a period that is not closed.
	ErrPeriodNotClosed = shared.InvalidState("accounting: period is not closed")
	// ErrPeriodLocked indicates the period is terminal.
	ErrPeriodLocked = shared.InvalidState("accounting: period locked")
	// ErrPreviousPeriodOpen enforces strictly sequential closing.
	ErrPreviousPeriodOpen = shared.InvalidState("accounting: previous period is not closed")
	// ErrDraftEntriesRemain blocks closing while draft entries exist.
	ErrDraftEntriesRemain = shared.InvalidState("accounting: period has draft journal entries")
	// ErrReopenReasonTooShort enforces the minimum reopen justification.
	ErrReopenReasonTooShort = shared.Validation("accounting: reopen reason must be at least 10 characters")

	// ErrBalanceNotFound indicates no balance exists for the account and period.
	ErrBalanceNotFound = shared.NotFound("accounting: account balance not found")

	// ErrBankAccountNotFound indicates a missing bank account.
	ErrBankAccountNotFound = shared.NotFound("accounting: bank account not found")
	// ErrReconciliationNotFound indicates a missing reconciliation.
	ErrReconciliationNotFound = shared.NotFound("accounting: reconciliation not found")
	// ErrDuplicateReconciliation indicates one already exists for the bank account and period.
	ErrDuplicateReconciliation = shared.Conflict("accounting: reconciliation already exists for period")
	// ErrReconciliationNotDraft indicates start attempted past draft.
	ErrReconciliationNotDraft = shared.InvalidState("accounting: reconciliation is not draft")
	// ErrReconciliationNotInProgress indicates matching or items outside the working state.
	ErrReconciliationNotInProgress = shared.InvalidState("accounting: reconciliation is not in progress")
	// ErrReconciliationNotCompleted indicates approval before completion.
	ErrReconciliationNotCompleted = shared.InvalidState("accounting: reconciliation is not completed")
	// ErrTransactionNotFound indicates a missing bank transaction.
	ErrTransactionNotFound = shared.NotFound("accounting: bank transaction not found")
	// ErrTransactionMatched indicates the bank transaction is already matched.
	ErrTransactionMatched = shared.InvalidState("accounting: bank transaction already matched")
	// ErrInvalidItemType indicates an unknown reconciling item category.
	ErrInvalidItemType = shared.Validation("accounting: unknown reconciling item type")

	// ErrAssetNotFound indicates a missing fixed asset.
	ErrAssetNotFound = shared.NotFound("accounting: fixed asset not found")
	// ErrCategoryNotFound indicates a missing asset category.
	ErrCategoryNotFound = shared.NotFound("accounting: asset category not found")
	// ErrRunNotFound indicates a missing depreciation run.
	ErrRunNotFound = shared.NotFound("accounting: depreciation run not found")
	// ErrDuplicateRun indicates the period was already calculated.
	ErrDuplicateRun = shared.Conflict("accounting: depreciation run already calculated for period")
	// ErrRunAlreadyPosted indicates post attempted on a posted run.
	ErrRunAlreadyPosted = shared.InvalidState("accounting: depreciation run already posted")
	// ErrAssetNotDraft indicates activation of a non-draft asset.
	ErrAssetNotDraft = shared.InvalidState("accounting: asset is not draft")
	// ErrAssetRetired indicates disposal of an already disposed or written-off asset.
	ErrAssetRetired = shared.InvalidState("accounting: asset already disposed or written off")
	// ErrStaleVersion indicates the optimistic version no longer matches.
	ErrStaleVersion = shared.Conflict("accounting: asset was modified concurrently")
	// ErrSalvageExceedsCost indicates salvage value above acquisition cost.
	ErrSalvageExceedsCost = shared.DomainRule("accounting: salvage value exceeds acquisition cost")
	// ErrNegativeDisposal indicates a negative disposal value.
	ErrNegativeDisposal = shared.DomainRule("accounting: disposal value must not be negative")

	// ErrMappingNotFound indicates an account mapping is missing.
	ErrMappingNotFound = shared.NotFound("accounting: account mapping not found")
)
