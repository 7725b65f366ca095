package loans_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

func Test_KindOf_ClassifiesEveryFamily(t *testing.T) {
	backendErr := errors.New("connection reset by peer")

	tests := []struct {
		name     string
		err      error
		expected loans.Kind
	}{
		{name: "nil", err: nil, expected: loans.KindNone},
		{name: "user_not_found", err: loans.ErrUserNotFound, expected: loans.KindUserNotFound},
		{name: "limit_exceeded_with_message", err: fmt.Errorf("%w: user 1 holds 2 of 2", loans.ErrBorrowLimitExceeded), expected: loans.KindBorrowLimitExceeded},
		{name: "book_not_found", err: loans.ErrBookNotFound, expected: loans.KindBookNotFound},
		{name: "book_unavailable", err: loans.ErrBookUnavailable, expected: loans.KindBookUnavailable},
		{name: "no_active_loan", err: loans.ErrNoActiveLoan, expected: loans.KindNoActiveLoan},
		{name: "race_lost", err: fmt.Errorf("%w: availability", loans.ErrRaceLost), expected: loans.KindRaceLost},
		{name: "invalid_input", err: loans.ErrInvalidInput, expected: loans.KindInvalidInput},
		{name: "book_has_loans", err: loans.ErrBookHasLoans, expected: loans.KindBookHasLoans},
		{name: "limit_below_active", err: loans.ErrBorrowLimitBelowActiveLoans, expected: loans.KindBorrowLimitBelowActive},
		{name: "transaction_failed", err: errors.Join(loans.ErrTransactionFailed, backendErr), expected: loans.KindTransactionFailed},
		{name: "canceled_wins_over_transaction_failed", err: errors.Join(loans.ErrTransactionFailed, context.Canceled), expected: loans.KindContextCanceled},
		{name: "deadline", err: errors.Join(loans.ErrTransactionFailed, context.DeadlineExceeded), expected: loans.KindContextDeadlineExceeded},
		{name: "other", err: backendErr, expected: loans.KindOther},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, loans.KindOf(tc.err))
		})
	}
}

func Test_IsRuleViolation_And_IsRetryable_AreDisjoint(t *testing.T) {
	ruleViolations := []error{
		loans.ErrUserNotFound,
		loans.ErrBorrowLimitExceeded,
		loans.ErrBookNotFound,
		loans.ErrBookUnavailable,
		loans.ErrNoActiveLoan,
	}

	for _, err := range ruleViolations {
		assert.True(t, loans.IsRuleViolation(err), err.Error())
		assert.False(t, loans.IsRetryable(err), err.Error())
		assert.True(t, loans.IsExpected(err), err.Error())
	}

	assert.True(t, loans.IsRetryable(loans.ErrRaceLost))
	assert.False(t, loans.IsRuleViolation(loans.ErrRaceLost))
	assert.True(t, loans.IsExpected(loans.ErrRaceLost))

	txErr := errors.Join(loans.ErrTransactionFailed, errors.New("deadlock detected"))
	assert.False(t, loans.IsRetryable(txErr))
	assert.False(t, loans.IsRuleViolation(txErr))
	assert.False(t, loans.IsExpected(txErr))
}
