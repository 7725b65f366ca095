// Package loans provides the core vocabulary for tracking a library's book inventory,
// its registered users and their active loans.
//
// This package defines the types shared by the loan engine implementations, the
// error taxonomy every Borrow and Return outcome is expressed in, and the
// dependency-free observability interfaces the engines report through.
//
// The error taxonomy has three families:
//   - Rule violations: ErrUserNotFound, ErrBorrowLimitExceeded, ErrBookNotFound,
//     ErrBookUnavailable, ErrNoActiveLoan
//   - Races: ErrRaceLost (a conditional write affected zero rows, a retry may succeed)
//   - Backend failures: ErrTransactionFailed (always rolled back, joined with the cause)
//
// Common usage pattern:
//
//	err := engine.Borrow(ctx, userID, "Dune", "Frank Herbert")
//	switch {
//	case err == nil:
//		// loan committed
//	case loans.IsRetryable(err):
//		// another transaction took the last copy, the caller may resubmit
//	case loans.IsRuleViolation(err):
//		// report err.Error() to the user
//	default:
//		// operator level failure, errors.Is(err, loans.ErrTransactionFailed)
//	}
package loans
