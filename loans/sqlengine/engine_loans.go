package sqlengine

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

// Borrow lends one copy of the book identified by (title, author) to the user.
//
// Preconditions are checked in order: the user exists, the user is below the borrow limit,
// the book exists, and a copy is available. The loan row is then inserted and availability
// and total_borrowed are updated with conditional updates that re-check the preconditions.
// All effects commit together or not at all.
func (e *Engine) Borrow(ctx context.Context, userID int64, title, author string) error {
	observer, ctx := e.startOperation(ctx, operationBorrow, userID, title, author)
	ctx = withObserver(ctx, observer)

	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		return e.borrow(ctx, tx, userID, title, author)
	})

	observer.finish(err)

	return err
}

func (e *Engine) borrow(ctx context.Context, tx adapters.DBTx, userID int64, title, author string) error {
	user, err := e.findUserByID(ctx, tx, userID)
	if err != nil {
		return err
	}

	if !user.CanBorrow() {
		return fmt.Errorf("%w: user %d holds %d of %d allowed loans",
			loans.ErrBorrowLimitExceeded, user.ID, user.TotalBorrowed, user.BorrowLimit)
	}

	book, err := e.findBookByTitleAuthor(ctx, tx, title, author)
	if err != nil {
		return err
	}

	if !book.IsAvailable() {
		return fmt.Errorf("%w: all %d copies of %q by %s are on loan",
			loans.ErrBookUnavailable, book.Quantity, book.Title, book.Author)
	}

	if err := e.runBeforeWrite(ctx, operationBorrow, tx); err != nil {
		return err
	}

	// writes touch loan, book, user in this order, the same order Return uses
	if err := e.insertLoan(ctx, tx, user.ID, book.ID, e.now()); err != nil {
		return err
	}

	if err := e.takeCopy(ctx, tx, book.ID); err != nil {
		return err
	}

	return e.countLoan(ctx, tx, user.ID)
}

// Return ends the user's oldest active loan of the book identified by (title, author).
//
// When the user holds several copies of the same book the loan with the earliest borrowed_at
// is returned first. The loan is marked returned, availability is incremented, and
// total_borrowed is decremented with a floor of zero. All effects commit together or not at all.
func (e *Engine) Return(ctx context.Context, userID int64, title, author string) error {
	observer, ctx := e.startOperation(ctx, operationReturn, userID, title, author)
	ctx = withObserver(ctx, observer)

	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		return e.giveBack(ctx, tx, userID, title, author)
	})

	observer.finish(err)

	return err
}

func (e *Engine) giveBack(ctx context.Context, tx adapters.DBTx, userID int64, title, author string) error {
	loan, err := e.findOldestActiveLoan(ctx, tx, userID, title, author)
	if err != nil {
		return err
	}

	if err := e.runBeforeWrite(ctx, operationReturn, tx); err != nil {
		return err
	}

	returnedAt := e.now()
	if returnedAt.Before(loan.borrowedAt) {
		returnedAt = loan.borrowedAt
	}

	if err := e.markReturned(ctx, tx, loan.loanID, returnedAt); err != nil {
		return err
	}

	if err := e.putBackCopy(ctx, tx, loan.bookID); err != nil {
		return err
	}

	return e.releaseLoanCount(ctx, tx, userID)
}

func (e *Engine) runBeforeWrite(ctx context.Context, operation string, tx adapters.Querier) error {
	if e.beforeWrite == nil {
		return nil
	}

	return e.beforeWrite(ctx, operation, tx)
}
