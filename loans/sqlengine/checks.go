package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

const (
	actionFindUser          = "find user"
	actionFindBook          = "find book"
	actionFindActiveLoan    = "find oldest active loan"
	actionInsertLoan        = "insert loan"
	actionTakeCopy          = "decrement availability"
	actionCountLoan         = "increment total_borrowed"
	actionMarkReturned      = "mark loan returned"
	actionPutBackCopy       = "increment availability"
	actionReleaseLoanCount  = "decrement total_borrowed"
	aliasLoans              = "l"
	aliasBooks              = "b"
	literalAvailabilityDec  = "availability - 1"
	literalAvailabilityInc  = "availability + 1"
	literalTotalBorrowedInc = "total_borrowed + 1"
	literalTotalBorrowedDec = "CASE WHEN total_borrowed > 0 THEN total_borrowed - 1 ELSE 0 END"
)

var (
	errLastCopyTaken             = errors.New("the last copy was taken concurrently")
	errLimitReachedConcurrently  = errors.New("the borrow limit was reached concurrently")
	errLoanReturnedConcurrently  = errors.New("the loan was returned concurrently")
	errAvailabilityAboveQuantity = errors.New("returning the copy would raise availability above quantity")
	errLoanUserMissing           = errors.New("the user of the loan does not exist")
)

// activeLoan is the loan selected for a Return.
type activeLoan struct {
	loanID     int64
	bookID     int64
	borrowedAt time.Time
}

// === Precondition reads, always on the operation's transaction ===

// findUserByID returns the user or loans.ErrUserNotFound.
func (e *Engine) findUserByID(ctx context.Context, q adapters.Querier, userID int64) (loans.User, error) {
	stmt := e.selectFrom(tableUsers).
		Select(colUserID, colName, colBorrowLimit, colTotalBorrowed).
		Where(goqu.C(colUserID).Eq(userID))

	var user loans.User
	found := false

	err := e.queryRows(ctx, q, actionFindUser, stmt, func(rows adapters.DBRows) error {
		found = true
		return rows.Scan(&user.ID, &user.Name, &user.BorrowLimit, &user.TotalBorrowed)
	})
	if err != nil {
		return loans.User{}, err
	}

	if !found {
		return loans.User{}, fmt.Errorf("%w: user %d", loans.ErrUserNotFound, userID)
	}

	return user, nil
}

// findBookByTitleAuthor returns the book or loans.ErrBookNotFound.
func (e *Engine) findBookByTitleAuthor(ctx context.Context, q adapters.Querier, title, author string) (loans.Book, error) {
	books, err := e.findBooks(ctx, q, actionFindBook, goqu.Ex{colTitle: title, colAuthor: author}, colTitle)
	if err != nil {
		return loans.Book{}, err
	}

	if len(books) == 0 {
		return loans.Book{}, fmt.Errorf("%w: %q by %s", loans.ErrBookNotFound, title, author)
	}

	return books[0], nil
}

func (e *Engine) findBooks(
	ctx context.Context,
	q adapters.Querier,
	action string,
	where goqu.Ex,
	orderBy ...string,
) ([]loans.Book, error) {

	stmt := e.selectFrom(tableBooks).
		Select(colBookID, colTitle, colAuthor, colQuantity, colAvailability)

	if len(where) > 0 {
		stmt = stmt.Where(where)
	}

	for _, col := range orderBy {
		stmt = stmt.OrderAppend(goqu.I(col).Asc())
	}

	books := make([]loans.Book, 0)

	err := e.queryRows(ctx, q, action, stmt, func(rows adapters.DBRows) error {
		var book loans.Book
		if err := rows.Scan(&book.ID, &book.Title, &book.Author, &book.Quantity, &book.Availability); err != nil {
			return err
		}

		books = append(books, book)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return books, nil
}

// findOldestActiveLoan selects the active loan of the user for the book with the earliest
// borrowed_at, the lowest loan_id breaks ties. It returns loans.ErrNoActiveLoan when there is none.
func (e *Engine) findOldestActiveLoan(
	ctx context.Context,
	q adapters.Querier,
	userID int64,
	title, author string,
) (activeLoan, error) {

	stmt := e.selectFrom(goqu.T(tableLoans).As(aliasLoans)).
		Select(
			goqu.I(aliasLoans+"."+colLoanID),
			goqu.I(aliasLoans+"."+colBookID),
			goqu.I(aliasLoans+"."+colBorrowedAt),
		).
		Join(
			goqu.T(tableBooks).As(aliasBooks),
			goqu.On(goqu.I(aliasBooks+"."+colBookID).Eq(goqu.I(aliasLoans+"."+colBookID))),
		).
		Where(
			goqu.I(aliasLoans+"."+colUserID).Eq(userID),
			goqu.I(aliasBooks+"."+colTitle).Eq(title),
			goqu.I(aliasBooks+"."+colAuthor).Eq(author),
			goqu.I(aliasLoans+"."+colReturnedAt).IsNull(),
		).
		Order(
			goqu.I(aliasLoans+"."+colBorrowedAt).Asc(),
			goqu.I(aliasLoans+"."+colLoanID).Asc(),
		).
		Limit(1)

	var loan activeLoan
	found := false

	err := e.queryRows(ctx, q, actionFindActiveLoan, stmt, func(rows adapters.DBRows) error {
		found = true
		return rows.Scan(&loan.loanID, &loan.bookID, &loan.borrowedAt)
	})
	if err != nil {
		return activeLoan{}, err
	}

	if !found {
		return activeLoan{}, fmt.Errorf("%w: user %d has no active loan of %q by %s", loans.ErrNoActiveLoan, userID, title, author)
	}

	return loan, nil
}

// === Writes ===
// Each conditional update repeats the precondition it depends on. Zero affected rows means
// a concurrent transaction changed the row after it was read.

func (e *Engine) insertLoan(ctx context.Context, q adapters.Querier, userID, bookID int64, borrowedAt time.Time) error {
	stmt := e.insertInto(tableLoans).
		Cols(colUserID, colBookID, colBorrowedAt).
		Vals(goqu.Vals{userID, bookID, borrowedAt})

	rowsAffected, err := e.execStatement(ctx, q, actionInsertLoan, stmt)
	if err != nil {
		return err
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%w: inserting the loan affected %d rows", loans.ErrTransactionFailed, rowsAffected)
	}

	return nil
}

// takeCopy decrements availability only while it is still positive.
func (e *Engine) takeCopy(ctx context.Context, q adapters.Querier, bookID int64) error {
	stmt := e.update(tableBooks).
		Set(goqu.Record{colAvailability: goqu.L(literalAvailabilityDec)}).
		Where(
			goqu.C(colBookID).Eq(bookID),
			goqu.C(colAvailability).Gt(0),
		)

	return e.expectOneRow(ctx, q, actionTakeCopy, stmt, loans.ErrRaceLost, errLastCopyTaken)
}

// countLoan increments total_borrowed only while the user is still below the limit.
func (e *Engine) countLoan(ctx context.Context, q adapters.Querier, userID int64) error {
	stmt := e.update(tableUsers).
		Set(goqu.Record{colTotalBorrowed: goqu.L(literalTotalBorrowedInc)}).
		Where(
			goqu.C(colUserID).Eq(userID),
			goqu.C(colTotalBorrowed).Lt(goqu.C(colBorrowLimit)),
		)

	return e.expectOneRow(ctx, q, actionCountLoan, stmt, loans.ErrRaceLost, errLimitReachedConcurrently)
}

// markReturned sets returned_at only while the loan is still active.
func (e *Engine) markReturned(ctx context.Context, q adapters.Querier, loanID int64, returnedAt time.Time) error {
	stmt := e.update(tableLoans).
		Set(goqu.Record{colReturnedAt: returnedAt}).
		Where(
			goqu.C(colLoanID).Eq(loanID),
			goqu.C(colReturnedAt).IsNull(),
		)

	return e.expectOneRow(ctx, q, actionMarkReturned, stmt, loans.ErrRaceLost, errLoanReturnedConcurrently)
}

// putBackCopy increments availability only while it is below quantity.
// Zero rows here is invariant drift, not a race.
func (e *Engine) putBackCopy(ctx context.Context, q adapters.Querier, bookID int64) error {
	stmt := e.update(tableBooks).
		Set(goqu.Record{colAvailability: goqu.L(literalAvailabilityInc)}).
		Where(
			goqu.C(colBookID).Eq(bookID),
			goqu.C(colAvailability).Lt(goqu.C(colQuantity)),
		)

	return e.expectOneRow(ctx, q, actionPutBackCopy, stmt, loans.ErrTransactionFailed, errAvailabilityAboveQuantity)
}

// releaseLoanCount decrements total_borrowed, clamped at zero.
func (e *Engine) releaseLoanCount(ctx context.Context, q adapters.Querier, userID int64) error {
	stmt := e.update(tableUsers).
		Set(goqu.Record{colTotalBorrowed: goqu.L(literalTotalBorrowedDec)}).
		Where(goqu.C(colUserID).Eq(userID))

	return e.expectOneRow(ctx, q, actionReleaseLoanCount, stmt, loans.ErrTransactionFailed, errLoanUserMissing)
}

func (e *Engine) expectOneRow(
	ctx context.Context,
	q adapters.Querier,
	action string,
	stmt sqlStatement,
	zeroRowsErr error,
	cause error,
) error {

	rowsAffected, err := e.execStatement(ctx, q, action, stmt)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		e.logDebug(ctx, logMsgSQLExecuted+action, logAttrRowsAffected, rowsAffected)
		return fmt.Errorf("%w: %w", zeroRowsErr, cause)
	}

	return nil
}
