package loans

import (
	"context"
	"errors"
)

// Rule violations. They are expected, user facing and never retried by the engine.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrBorrowLimitExceeded = errors.New("borrow limit exceeded")
	ErrBookNotFound        = errors.New("book not found")
	ErrBookUnavailable     = errors.New("book is not available")
	ErrNoActiveLoan        = errors.New("no active loan")
)

// ErrRaceLost is returned when a conditional update affected zero rows because a concurrent
// transaction changed the row between the precondition read and the write.
var ErrRaceLost = errors.New("concurrent transaction changed the state, no rows were affected")

// ErrTransactionFailed wraps every unexpected backend failure. The transaction was rolled back.
var ErrTransactionFailed = errors.New("transaction failed")

// Catalog and construction errors.
var (
	ErrInvalidInput                = errors.New("invalid input")
	ErrBookHasLoans                = errors.New("book has loan records")
	ErrBorrowLimitBelowActiveLoans = errors.New("borrow limit is below the number of active loans")
	ErrNilDatabaseConnection       = errors.New("database connection must not be nil")
	ErrUnsupportedDialect          = errors.New("unsupported sql dialect")
)

// Kind is a stable, machine-readable name for an error family member.
// It is used for metric labels and for mapping outcomes in the outer shells.
type Kind string

// Error kinds.
const (
	KindNone                    Kind = "none"
	KindUserNotFound            Kind = "user_not_found"
	KindBorrowLimitExceeded     Kind = "borrow_limit_exceeded"
	KindBookNotFound            Kind = "book_not_found"
	KindBookUnavailable         Kind = "book_unavailable"
	KindNoActiveLoan            Kind = "no_active_loan"
	KindRaceLost                Kind = "race_lost"
	KindInvalidInput            Kind = "invalid_input"
	KindBookHasLoans            Kind = "book_has_loans"
	KindBorrowLimitBelowActive  Kind = "borrow_limit_below_active_loans"
	KindTransactionFailed       Kind = "transaction_failed"
	KindContextCanceled         Kind = "context_canceled"
	KindContextDeadlineExceeded Kind = "context_deadline_exceeded"
	KindOther                   Kind = "other"
)

var ruleViolations = []struct {
	err  error
	kind Kind
}{
	{ErrUserNotFound, KindUserNotFound},
	{ErrBorrowLimitExceeded, KindBorrowLimitExceeded},
	{ErrBookNotFound, KindBookNotFound},
	{ErrBookUnavailable, KindBookUnavailable},
	{ErrNoActiveLoan, KindNoActiveLoan},
}

// KindOf classifies err. Rule violations and races win over the wrapping
// ErrTransactionFailed, context errors are reported separately from other backend failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	for _, rv := range ruleViolations {
		if errors.Is(err, rv.err) {
			return rv.kind
		}
	}

	switch {
	case errors.Is(err, ErrRaceLost):
		return KindRaceLost
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrBookHasLoans):
		return KindBookHasLoans
	case errors.Is(err, ErrBorrowLimitBelowActiveLoans):
		return KindBorrowLimitBelowActive
	case errors.Is(err, context.Canceled):
		return KindContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindContextDeadlineExceeded
	case errors.Is(err, ErrTransactionFailed):
		return KindTransactionFailed
	}

	return KindOther
}

// IsRuleViolation reports whether err is one of the expected business rule violations.
func IsRuleViolation(err error) bool {
	for _, rv := range ruleViolations {
		if errors.Is(err, rv.err) {
			return true
		}
	}

	return false
}

// IsRetryable reports whether resubmitting the same operation may succeed.
// Only lost races qualify, rule violations and backend failures do not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRaceLost)
}

// IsExpected reports whether err is part of the normal outcome space of Borrow and Return,
// i.e. a rule violation or a lost race. Expected errors are never logged as system faults.
func IsExpected(err error) bool {
	return IsRuleViolation(err) || IsRetryable(err)
}
