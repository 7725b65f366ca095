package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell"
)

const (
	outputText = "text"
	outputJSON = "json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type bookView struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Quantity     int64  `json:"quantity"`
	Availability int64  `json:"availability"`
}

type userView struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	BorrowLimit   int64              `json:"borrow_limit"`
	TotalBorrowed int64              `json:"total_borrowed"`
	ActiveLoans   []borrowedBookView `json:"active_loans,omitempty"`
}

type borrowedBookView struct {
	LoanID     int64     `json:"loan_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	BorrowedAt time.Time `json:"borrowed_at"`
}

type outcomeView struct {
	Operation string `json:"operation"`
	UserID    int64  `json:"user_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Success   bool   `json:"success"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Attempts  int    `json:"attempts"`
}

type messageView struct {
	Message string `json:"message"`
}

// printer renders command results as aligned text or as indented JSON.
type printer struct {
	w      io.Writer
	format string
}

func (p printer) encode(v any) error {
	encoder := json.NewEncoder(p.w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func (p printer) message(msg string) error {
	if p.format == outputJSON {
		return p.encode(messageView{Message: msg})
	}

	_, err := fmt.Fprintln(p.w, msg)

	return err
}

func (p printer) book(book loans.Book) error {
	return p.books([]loans.Book{book})
}

func (p printer) books(books []loans.Book) error {
	views := make([]bookView, 0, len(books))
	for _, b := range books {
		views = append(views, bookView{
			ID:           b.ID,
			Title:        b.Title,
			Author:       b.Author,
			Quantity:     b.Quantity,
			Availability: b.Availability,
		})
	}

	if p.format == outputJSON {
		return p.encode(views)
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(p.w, "(no books)")
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tQUANTITY\tAVAILABLE")

	for _, v := range views {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", v.ID, v.Title, v.Author, v.Quantity, v.Availability)
	}

	return tw.Flush()
}

func (p printer) users(users []loans.User) error {
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u, nil))
	}

	if p.format == outputJSON {
		return p.encode(views)
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(p.w, "(no users)")
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tLIMIT\tBORROWED")

	for _, v := range views {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", v.ID, v.Name, v.BorrowLimit, v.TotalBorrowed)
	}

	return tw.Flush()
}

func (p printer) user(user loans.UserWithLoans) error {
	view := toUserView(user.User, user.ActiveLoans)

	if p.format == outputJSON {
		return p.encode(view)
	}

	_, _ = fmt.Fprintf(p.w, "User %d: %s\n", view.ID, view.Name)
	_, _ = fmt.Fprintf(p.w, "Borrow limit: %d, borrowed: %d\n", view.BorrowLimit, view.TotalBorrowed)
	_, _ = fmt.Fprintln(p.w, "Currently borrowed:")

	if len(view.ActiveLoans) == 0 {
		_, err := fmt.Fprintln(p.w, "  (none)")
		return err
	}

	for _, loan := range view.ActiveLoans {
		_, _ = fmt.Fprintf(p.w, "  - %s by %s (since %s)\n", loan.Title, loan.Author, loan.BorrowedAt.Format(time.DateTime))
	}

	return nil
}

func (p printer) outcome(outcome shell.Outcome) error {
	view := outcomeView{
		Operation: outcome.Operation,
		UserID:    outcome.UserID,
		Title:     outcome.Title,
		Author:    outcome.Author,
		Success:   outcome.Succeeded(),
		Kind:      string(outcome.Kind),
		Message:   outcome.Message,
		Attempts:  outcome.Retry.Attempts,
	}

	if p.format == outputJSON {
		return p.encode(view)
	}

	if view.Attempts > 1 {
		_, err := fmt.Fprintf(p.w, "%s (after %d attempts)\n", view.Message, view.Attempts)
		return err
	}

	_, err := fmt.Fprintln(p.w, view.Message)

	return err
}

func toUserView(user loans.User, active []loans.BorrowedBook) userView {
	view := userView{
		ID:            user.ID,
		Name:          user.Name,
		BorrowLimit:   user.BorrowLimit,
		TotalBorrowed: user.TotalBorrowed,
	}

	for _, b := range active {
		view.ActiveLoans = append(view.ActiveLoans, borrowedBookView{
			LoanID:     b.LoanID,
			Title:      b.Title,
			Author:     b.Author,
			BorrowedAt: b.BorrowedAt,
		})
	}

	return view
}
