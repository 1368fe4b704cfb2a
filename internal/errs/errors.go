package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrImmutable indicates an attempt to change immutable fields.
	ErrImmutable = errors.New("immutable")
)

// Journal invariants.
var (
	// ErrUnbalanced rejects an entry whose debits and credits differ.
	ErrUnbalanced = errors.New("unbalanced_entry")
	// ErrInsufficientLines rejects an entry with fewer than 2 non-zero lines.
	ErrInsufficientLines = errors.New("insufficient_lines")
	// ErrInvalidAccount rejects a line against a group, inactive or
	// foreign account.
	ErrInvalidAccount = errors.New("invalid_account")
)

// Chart of accounts.
var (
	// ErrAccountInUse blocks deleting an account any journal line ever referenced.
	ErrAccountInUse = errors.New("account_in_use")
	// ErrCodeExists blocks duplicate account codes within a company.
	ErrCodeExists = errors.New("code_exists")
)

// Document state machine.
var (
	// ErrNotDraft rejects mutations on documents past draft.
	ErrNotDraft = errors.New("not_draft")
	// ErrNoLines rejects issuing a document without lines.
	ErrNoLines = errors.New("no_lines")
	// ErrStateConflict rejects an operation invalid for the document's
	// current status.
	ErrStateConflict = errors.New("state_conflict")
)

// Payments and banking.
var (
	// ErrOverApplied rejects an allocation exceeding the document's
	// remaining balance.
	ErrOverApplied = errors.New("over_applied")
	// ErrAmountMismatch rejects a payment whose amount differs from the
	// sum of its allocations.
	ErrAmountMismatch = errors.New("amount_mismatch")
	// ErrPostingProfile indicates the company has no control accounts
	// configured for document postings.
	ErrPostingProfile = errors.New("posting_profile_missing")
	// ErrReconciled blocks mutating an already reconciled transaction or
	// completed reconciliation.
	ErrReconciled = errors.New("reconciled")
)
