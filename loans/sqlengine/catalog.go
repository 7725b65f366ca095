package sqlengine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

const (
	actionIncreaseBook     = "increase book copies"
	actionInsertBook       = "insert book"
	actionCountBookLoans   = "count loans of book"
	actionDeleteBook       = "delete book"
	actionUpdateUser       = "update user"
	actionInsertUser       = "insert user"
	actionListBooks        = "list books"
	actionListUsers        = "list users"
	actionFindBooksAuthor  = "find books by author"
	actionFindBooksTitle   = "find books by title"
	actionFindUserLoans    = "find active loans of user"
	literalQuantityAdd     = "quantity + ?"
	literalAvailabilityAdd = "availability + ?"
	aliasLoanCount         = "loan_count"

	logMsgBookAdded   = "book copies added"
	logMsgBookRemoved = "book removed"
	logMsgUserSaved   = "user registered"
	logAttrQuantity   = "quantity"
	logAttrLimit      = "borrow_limit"
)

// AddOrIncreaseBook adds copies of a book. An existing (title, author) gets its quantity and
// availability raised by the given quantity, otherwise a new book is created.
func (e *Engine) AddOrIncreaseBook(ctx context.Context, input loans.NewBook) (loans.Book, error) {
	input = input.Normalize()
	if err := loans.Validate(input); err != nil {
		return loans.Book{}, err
	}

	var book loans.Book

	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		increase := e.update(tableBooks).
			Set(goqu.Record{
				colQuantity:     goqu.L(literalQuantityAdd, input.Quantity),
				colAvailability: goqu.L(literalAvailabilityAdd, input.Quantity),
			}).
			Where(goqu.Ex{colTitle: input.Title, colAuthor: input.Author})

		rowsAffected, err := e.execStatement(ctx, tx, actionIncreaseBook, increase)
		if err != nil {
			return err
		}

		if rowsAffected == 0 {
			insert := e.insertInto(tableBooks).
				Cols(colTitle, colAuthor, colQuantity, colAvailability).
				Vals(goqu.Vals{input.Title, input.Author, input.Quantity, input.Quantity})

			if _, err := e.execStatement(ctx, tx, actionInsertBook, insert); err != nil {
				return err
			}
		}

		book, err = e.findBookByTitleAuthor(ctx, tx, input.Title, input.Author)

		return err
	})
	if err != nil {
		return loans.Book{}, err
	}

	e.logInfo(ctx, logMsgBookAdded, logAttrTitle, book.Title, logAttrAuthor, book.Author, logAttrQuantity, input.Quantity)

	return book, nil
}

// RemoveBook deletes a book that has never been lent. Books with loan records are kept
// and loans.ErrBookHasLoans is returned, because loans are never deleted.
func (e *Engine) RemoveBook(ctx context.Context, title, author string) error {
	ref := loans.BookRef{Title: title, Author: author}.Normalize()
	if err := loans.Validate(ref); err != nil {
		return err
	}

	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		book, err := e.findBookByTitleAuthor(ctx, tx, ref.Title, ref.Author)
		if err != nil {
			return err
		}

		count := e.selectFrom(tableLoans).
			Select(goqu.COUNT(goqu.Star()).As(aliasLoanCount)).
			Where(goqu.C(colBookID).Eq(book.ID))

		var loanCount int64

		err = e.queryRows(ctx, tx, actionCountBookLoans, count, func(rows adapters.DBRows) error {
			return rows.Scan(&loanCount)
		})
		if err != nil {
			return err
		}

		if loanCount > 0 {
			return fmt.Errorf("%w: %q by %s has %d loan records", loans.ErrBookHasLoans, book.Title, book.Author, loanCount)
		}

		_, err = e.execStatement(ctx, tx, actionDeleteBook, e.deleteFrom(tableBooks).Where(goqu.C(colBookID).Eq(book.ID)))

		return err
	})
	if err != nil {
		return err
	}

	e.logInfo(ctx, logMsgBookRemoved, logAttrTitle, ref.Title, logAttrAuthor, ref.Author)

	return nil
}

// RegisterUser creates a user or updates name and borrow limit of an existing one.
// total_borrowed is never written here. A limit below the user's active loans is rejected
// with loans.ErrBorrowLimitBelowActiveLoans.
func (e *Engine) RegisterUser(ctx context.Context, input loans.NewUser) (loans.User, error) {
	input = input.Normalize()
	if err := loans.Validate(input); err != nil {
		return loans.User{}, err
	}

	var user loans.User

	err := e.inTransaction(ctx, func(tx adapters.DBTx) error {
		update := e.update(tableUsers).
			Set(goqu.Record{colName: input.Name, colBorrowLimit: input.BorrowLimit}).
			Where(
				goqu.C(colUserID).Eq(input.ID),
				goqu.C(colTotalBorrowed).Lte(input.BorrowLimit),
			)

		rowsAffected, err := e.execStatement(ctx, tx, actionUpdateUser, update)
		if err != nil {
			return err
		}

		if rowsAffected == 0 {
			existing, findErr := e.findUserByID(ctx, tx, input.ID)

			switch {
			case findErr == nil:
				return fmt.Errorf("%w: user %d has %d active loans, requested limit is %d",
					loans.ErrBorrowLimitBelowActiveLoans, existing.ID, existing.TotalBorrowed, input.BorrowLimit)

			case !loans.IsRuleViolation(findErr):
				return findErr
			}

			insert := e.insertInto(tableUsers).
				Cols(colUserID, colName, colBorrowLimit, colTotalBorrowed).
				Vals(goqu.Vals{input.ID, input.Name, input.BorrowLimit, 0})

			if _, err := e.execStatement(ctx, tx, actionInsertUser, insert); err != nil {
				return err
			}
		}

		user, err = e.findUserByID(ctx, tx, input.ID)

		return err
	})
	if err != nil {
		return loans.User{}, err
	}

	e.logInfo(ctx, logMsgUserSaved, logAttrUserID, user.ID, logAttrLimit, user.BorrowLimit)

	return user, nil
}

// ListBooks returns all books ordered by author and title.
func (e *Engine) ListBooks(ctx context.Context) ([]loans.Book, error) {
	return e.findBooks(ctx, e.db, actionListBooks, goqu.Ex{}, colAuthor, colTitle)
}

// ListUsers returns all users ordered by id.
func (e *Engine) ListUsers(ctx context.Context) ([]loans.User, error) {
	stmt := e.selectFrom(tableUsers).
		Select(colUserID, colName, colBorrowLimit, colTotalBorrowed).
		Order(goqu.C(colUserID).Asc())

	users := make([]loans.User, 0)

	err := e.queryRows(ctx, e.db, actionListUsers, stmt, func(rows adapters.DBRows) error {
		var user loans.User
		if err := rows.Scan(&user.ID, &user.Name, &user.BorrowLimit, &user.TotalBorrowed); err != nil {
			return err
		}

		users = append(users, user)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

// FindUser returns the user together with the active loans, newest first.
func (e *Engine) FindUser(ctx context.Context, userID int64) (loans.UserWithLoans, error) {
	user, err := e.findUserByID(ctx, e.db, userID)
	if err != nil {
		return loans.UserWithLoans{}, err
	}

	stmt := e.selectFrom(goqu.T(tableLoans).As(aliasLoans)).
		Select(
			goqu.I(aliasLoans+"."+colLoanID),
			goqu.I(aliasBooks+"."+colTitle),
			goqu.I(aliasBooks+"."+colAuthor),
			goqu.I(aliasLoans+"."+colBorrowedAt),
		).
		Join(
			goqu.T(tableBooks).As(aliasBooks),
			goqu.On(goqu.I(aliasBooks+"."+colBookID).Eq(goqu.I(aliasLoans+"."+colBookID))),
		).
		Where(
			goqu.I(aliasLoans+"."+colUserID).Eq(userID),
			goqu.I(aliasLoans+"."+colReturnedAt).IsNull(),
		).
		Order(
			goqu.I(aliasLoans+"."+colBorrowedAt).Desc(),
			goqu.I(aliasLoans+"."+colLoanID).Desc(),
		)

	active := make([]loans.BorrowedBook, 0)

	err = e.queryRows(ctx, e.db, actionFindUserLoans, stmt, func(rows adapters.DBRows) error {
		var borrowed loans.BorrowedBook
		var borrowedAt sql.NullTime

		if err := rows.Scan(&borrowed.LoanID, &borrowed.Title, &borrowed.Author, &borrowedAt); err != nil {
			return err
		}

		borrowed.BorrowedAt = borrowedAt.Time.UTC()
		active = append(active, borrowed)

		return nil
	})
	if err != nil {
		return loans.UserWithLoans{}, err
	}

	return loans.UserWithLoans{User: user, ActiveLoans: active}, nil
}

// FindBook returns the book identified by (title, author) or loans.ErrBookNotFound.
func (e *Engine) FindBook(ctx context.Context, title, author string) (loans.Book, error) {
	ref := loans.BookRef{Title: title, Author: author}.Normalize()

	return e.findBookByTitleAuthor(ctx, e.db, ref.Title, ref.Author)
}

// FindBooksByAuthor returns the author's books ordered by title, or loans.ErrBookNotFound.
func (e *Engine) FindBooksByAuthor(ctx context.Context, author string) ([]loans.Book, error) {
	author = loans.BookRef{Author: author}.Normalize().Author

	books, err := e.findBooks(ctx, e.db, actionFindBooksAuthor, goqu.Ex{colAuthor: author}, colTitle)
	if err != nil {
		return nil, err
	}

	if len(books) == 0 {
		return nil, fmt.Errorf("%w: no books by %s", loans.ErrBookNotFound, author)
	}

	return books, nil
}

// FindBooksByTitle returns the books with the title ordered by author, or loans.ErrBookNotFound.
func (e *Engine) FindBooksByTitle(ctx context.Context, title string) ([]loans.Book, error) {
	title = loans.BookRef{Title: title}.Normalize().Title

	books, err := e.findBooks(ctx, e.db, actionFindBooksTitle, goqu.Ex{colTitle: title}, colAuthor)
	if err != nil {
		return nil, err
	}

	if len(books) == 0 {
		return nil, fmt.Errorf("%w: no books titled %q", loans.ErrBookNotFound, title)
	}

	return books, nil
}
