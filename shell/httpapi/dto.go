package httpapi

import (
	"time"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell"
)

type loanRequest struct {
	UserID int64  `json:"user_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type addBookRequest struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Quantity int64  `json:"quantity"`
}

type registerUserRequest struct {
	Name        string `json:"name"`
	BorrowLimit int64  `json:"borrow_limit"`
}

// BookResponse is a book in API responses.
type BookResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Quantity     int64  `json:"quantity"`
	Availability int64  `json:"availability"`
}

// UserResponse is a user in API responses.
type UserResponse struct {
	ID            int64                  `json:"id"`
	Name          string                 `json:"name"`
	BorrowLimit   int64                  `json:"borrow_limit"`
	TotalBorrowed int64                  `json:"total_borrowed"`
	ActiveLoans   []BorrowedBookResponse `json:"active_loans,omitempty"`
}

// BorrowedBookResponse is an active loan in API responses.
type BorrowedBookResponse struct {
	LoanID     int64     `json:"loan_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	BorrowedAt time.Time `json:"borrowed_at"`
}

// OutcomeResponse reports a committed Borrow or Return.
type OutcomeResponse struct {
	Operation string `json:"operation"`
	UserID    int64  `json:"user_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Message   string `json:"message"`
	Attempts  int    `json:"attempts"`
}

func toBookResponse(book loans.Book) BookResponse {
	return BookResponse{
		ID:           book.ID,
		Title:        book.Title,
		Author:       book.Author,
		Quantity:     book.Quantity,
		Availability: book.Availability,
	}
}

func toBookResponses(books []loans.Book) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for _, book := range books {
		out = append(out, toBookResponse(book))
	}

	return out
}

func toUserResponse(user loans.User, active []loans.BorrowedBook) UserResponse {
	out := UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		BorrowLimit:   user.BorrowLimit,
		TotalBorrowed: user.TotalBorrowed,
	}

	for _, loan := range active {
		out.ActiveLoans = append(out.ActiveLoans, BorrowedBookResponse{
			LoanID:     loan.LoanID,
			Title:      loan.Title,
			Author:     loan.Author,
			BorrowedAt: loan.BorrowedAt,
		})
	}

	return out
}

func toOutcomeResponse(outcome shell.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Operation: outcome.Operation,
		UserID:    outcome.UserID,
		Title:     outcome.Title,
		Author:    outcome.Author,
		Message:   outcome.Message,
		Attempts:  outcome.Retry.Attempts,
	}
}
