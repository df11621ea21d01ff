package shared

import "errors"

// Error kinds shared by every domain module. Domain packages define their own
// sentinel errors with the constructors below so callers can branch either on
// the specific sentinel or on the kind.
var (
	// ErrNotFound indicates a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates an operation not permitted in the current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict indicates duplicates or stale optimistic versions.
	ErrConflict = errors.New("conflict")
	// ErrDomainRule indicates a business rule violation.
	ErrDomainRule = errors.New("domain rule violation")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NotFound builds a sentinel wrapping ErrNotFound.
func NotFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }

// Validation builds a sentinel wrapping ErrValidation.
func Validation(msg string) error { return &kindError{kind: ErrValidation, msg: msg} }

// InvalidState builds a sentinel wrapping ErrInvalidState.
func InvalidState(msg string) error { return &kindError{kind: ErrInvalidState, msg: msg} }

// Conflict builds a sentinel wrapping ErrConflict.
func Conflict(msg string) error { return &kindError{kind: ErrConflict, msg: msg} }

// DomainRule builds a sentinel wrapping ErrDomainRule.
func DomainRule(msg string) error { return &kindError{kind: ErrDomainRule, msg: msg} }
