package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell"
)

var errInputClosed = errors.New("input closed")

var menuOptions = []string{
	"1 : Add/Increase Book",
	"2 : Remove Book",
	"3 : Add/Update User",
	"4 : Display All Books",
	"5 : Display All Users",
	"6 : Display Individual User",
	"7 : Find Books by Author",
	"8 : Find Author(s) by Book Title",
	"9 : Borrow a Book",
	"10: Return a Book",
	"11: Exit",
}

func newMenuCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Run the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			m := &menu{
				library:     s.library,
				scanner:     bufio.NewScanner(a.in),
				out:         cmd.OutOrStdout(),
				printer:     a.printer(cmd),
				interactive: isTerminal(a.in),
			}

			return m.run(cmd.Context())
		},
	}
}

// menu reads numbered choices and the values they need line by line.
// Prompts and the option list are only printed when the input is a terminal.
type menu struct {
	library     *shell.Library
	scanner     *bufio.Scanner
	out         io.Writer
	printer     printer
	interactive bool
}

func (m *menu) run(ctx context.Context) error {
	_, _ = fmt.Fprintln(m.out, "Connected to the library database.")

	for {
		m.showOptions()

		choice, err := m.ask("> ")
		if errors.Is(err, errInputClosed) {
			return nil
		}

		if err != nil {
			return err
		}

		if choice == "11" {
			_, _ = fmt.Fprintln(m.out, "Goodbye.")
			return nil
		}

		err = m.dispatch(ctx, choice)

		switch {
		case errors.Is(err, errInputClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			_, _ = fmt.Fprintln(m.out, shell.Describe(err))
		}
	}
}

func (m *menu) dispatch(ctx context.Context, choice string) error {
	switch choice {
	case "1":
		return m.addBook(ctx)
	case "2":
		return m.removeBook(ctx)
	case "3":
		return m.addUser(ctx)
	case "4":
		return m.displayBooks(ctx)
	case "5":
		return m.displayUsers(ctx)
	case "6":
		return m.displayUser(ctx)
	case "7":
		return m.findByAuthor(ctx)
	case "8":
		return m.findByTitle(ctx)
	case "9":
		return m.loan(ctx, m.library.Borrow)
	case "10":
		return m.loan(ctx, m.library.Return)
	default:
		_, err := fmt.Fprintln(m.out, "Invalid choice.")
		return err
	}
}

func (m *menu) showOptions() {
	if !m.interactive {
		return
	}

	_, _ = fmt.Fprintln(m.out, "\nChoose Options -->")
	for _, option := range menuOptions {
		_, _ = fmt.Fprintln(m.out, option)
	}
}

func (m *menu) addBook(ctx context.Context) error {
	title, author, err := m.askBook()
	if err != nil {
		return err
	}

	quantity, err := m.askInt("Quantity: ", "quantity")
	if err != nil {
		return err
	}

	if _, err := m.library.AddOrIncreaseBook(ctx, loans.NewBook{Title: title, Author: author, Quantity: quantity}); err != nil {
		return err
	}

	return m.printer.message("Book added/increased successfully.")
}

func (m *menu) removeBook(ctx context.Context) error {
	title, author, err := m.askBook()
	if err != nil {
		return err
	}

	if err := m.library.RemoveBook(ctx, title, author); err != nil {
		return err
	}

	return m.printer.message("Book removed.")
}

func (m *menu) addUser(ctx context.Context) error {
	id, err := m.askInt("User ID: ", "user id")
	if err != nil {
		return err
	}

	name, err := m.ask("Name: ")
	if err != nil {
		return err
	}

	limit, err := m.askInt("Borrow limit: ", "borrow limit")
	if err != nil {
		return err
	}

	if _, err := m.library.RegisterUser(ctx, loans.NewUser{ID: id, Name: name, BorrowLimit: limit}); err != nil {
		return err
	}

	return m.printer.message("User added/updated.")
}

func (m *menu) displayBooks(ctx context.Context) error {
	books, err := m.library.ListBooks(ctx)
	if err != nil {
		return err
	}

	return m.printer.books(books)
}

func (m *menu) displayUsers(ctx context.Context) error {
	users, err := m.library.ListUsers(ctx)
	if err != nil {
		return err
	}

	return m.printer.users(users)
}

func (m *menu) displayUser(ctx context.Context) error {
	id, err := m.askInt("User ID: ", "user id")
	if err != nil {
		return err
	}

	user, err := m.library.FindUser(ctx, id)
	if err != nil {
		return err
	}

	return m.printer.user(user)
}

func (m *menu) findByAuthor(ctx context.Context) error {
	author, err := m.ask("Author: ")
	if err != nil {
		return err
	}

	books, err := m.library.FindBooksByAuthor(ctx, author)
	if err != nil {
		return err
	}

	return m.printer.books(books)
}

func (m *menu) findByTitle(ctx context.Context) error {
	title, err := m.ask("Title: ")
	if err != nil {
		return err
	}

	books, err := m.library.FindBooksByTitle(ctx, title)
	if err != nil {
		return err
	}

	return m.printer.books(books)
}

// loan prints the outcome itself, so rule violations are not reported twice.
func (m *menu) loan(ctx context.Context, operation func(context.Context, shell.LoanCommand) (shell.Outcome, error)) error {
	id, err := m.askInt("User ID: ", "user id")
	if err != nil {
		return err
	}

	title, author, err := m.askBook()
	if err != nil {
		return err
	}

	outcome, _ := operation(ctx, shell.LoanCommand{UserID: id, Title: title, Author: author})

	return m.printer.outcome(outcome)
}

func (m *menu) askBook() (string, string, error) {
	title, err := m.ask("Title: ")
	if err != nil {
		return "", "", err
	}

	author, err := m.ask("Author: ")
	if err != nil {
		return "", "", err
	}

	return title, author, nil
}

func (m *menu) askInt(prompt, label string) (int64, error) {
	raw, err := m.ask(prompt)
	if err != nil {
		return 0, err
	}

	return parseID(label, raw)
}

func (m *menu) ask(prompt string) (string, error) {
	if m.interactive {
		_, _ = fmt.Fprint(m.out, prompt)
	}

	if !m.scanner.Scan() {
		if err := m.scanner.Err(); err != nil {
			return "", err
		}

		return "", errInputClosed
	}

	return strings.TrimSpace(m.scanner.Text()), nil
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
