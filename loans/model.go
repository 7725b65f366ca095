package loans

import (
	"time"
)

// User is a registered library user.
// TotalBorrowed is the maintained count of active loans, only the loan engine writes it.
type User struct {
	ID            int64
	Name          string
	BorrowLimit   int64
	TotalBorrowed int64
}

// CanBorrow reports whether the user is below the borrow limit.
func (u User) CanBorrow() bool {
	return u.TotalBorrowed < u.BorrowLimit
}

// Book is one catalog entry, identified for lookups by its (Title, Author) pair.
// Availability is the number of copies not on loan, only the loan engine writes it.
type Book struct {
	ID           int64
	Title        string
	Author       string
	Quantity     int64
	Availability int64
}

// IsAvailable reports whether at least one copy can be lent.
func (b Book) IsAvailable() bool {
	return b.Availability > 0
}

// OnLoan returns the number of copies currently lent out.
func (b Book) OnLoan() int64 {
	return b.Quantity - b.Availability
}

// Loan links one user to one copy of a book. A nil ReturnedAt means the loan is active.
type Loan struct {
	ID         int64
	UserID     int64
	BookID     int64
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// IsActive reports whether the loan has not been returned yet.
func (l Loan) IsActive() bool {
	return l.ReturnedAt == nil
}

// BorrowedBook is an active loan joined with the book it refers to.
type BorrowedBook struct {
	LoanID     int64
	Title      string
	Author     string
	BorrowedAt time.Time
}

// UserWithLoans is a user together with the active loans, newest first.
type UserWithLoans struct {
	User
	ActiveLoans []BorrowedBook
}
