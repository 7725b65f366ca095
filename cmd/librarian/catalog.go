package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell/config"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false, func(cfg *config.Config) { cfg.Database.AutoMigrate = false })
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			if err := s.backend.Engine.Migrate(cmd.Context()); err != nil {
				return err
			}

			return a.printer(cmd).message("Schema is up to date.")
		},
	}
}

func newBookCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the books in the catalog",
	}

	cmd.AddCommand(
		newBookAddCommand(a),
		newBookRemoveCommand(a),
		newBookListCommand(a),
		newBookFindCommand(a),
	)

	return cmd
}

func newBookAddCommand(a *app) *cobra.Command {
	var input loans.NewBook

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book or increase the number of copies of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			book, err := s.library.AddOrIncreaseBook(cmd.Context(), input)
			if err != nil {
				return err
			}

			return a.printer(cmd).book(book)
		},
	}

	cmd.Flags().StringVar(&input.Title, "title", "", "book title")
	cmd.Flags().StringVar(&input.Author, "author", "", "book author")
	cmd.Flags().Int64Var(&input.Quantity, "quantity", 1, "number of copies to add")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func newBookRemoveCommand(a *app) *cobra.Command {
	var ref loans.BookRef

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a book that was never lent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			if err := s.library.RemoveBook(cmd.Context(), ref.Title, ref.Author); err != nil {
				return err
			}

			return a.printer(cmd).message("Book removed.")
		},
	}

	cmd.Flags().StringVar(&ref.Title, "title", "", "book title")
	cmd.Flags().StringVar(&ref.Author, "author", "", "book author")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func newBookListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all books ordered by author and title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			books, err := s.library.ListBooks(cmd.Context())
			if err != nil {
				return err
			}

			return a.printer(cmd).books(books)
		},
	}
}

func newBookFindCommand(a *app) *cobra.Command {
	var title, author string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find books by author, by title, or both",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			ctx := cmd.Context()

			var books []loans.Book

			switch {
			case title != "" && author != "":
				book, findErr := s.library.FindBook(ctx, title, author)
				if findErr != nil {
					return findErr
				}

				books = []loans.Book{book}

			case author != "":
				books, err = s.library.FindBooksByAuthor(ctx, author)

			default:
				books, err = s.library.FindBooksByTitle(ctx, title)
			}

			if err != nil {
				return err
			}

			return a.printer(cmd).books(books)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&author, "author", "", "book author")
	cmd.MarkFlagsOneRequired("title", "author")

	return cmd
}

func newUserCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the registered users",
	}

	cmd.AddCommand(
		newUserAddCommand(a),
		newUserListCommand(a),
		newUserShowCommand(a),
	)

	return cmd
}

func newUserAddCommand(a *app) *cobra.Command {
	var input loans.NewUser

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user or update the name and borrow limit of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			user, err := s.library.RegisterUser(cmd.Context(), input)
			if err != nil {
				return err
			}

			return a.printer(cmd).users([]loans.User{user})
		},
	}

	cmd.Flags().Int64Var(&input.ID, "id", 0, "user id")
	cmd.Flags().StringVar(&input.Name, "name", "", "user name")
	cmd.Flags().Int64Var(&input.BorrowLimit, "limit", 0, "maximum number of books the user may borrow at once")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("limit")

	return cmd
}

func newUserListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users ordered by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			users, err := s.library.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			return a.printer(cmd).users(users)
		},
	}
}

func newUserShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a user with the books currently borrowed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}

			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			user, err := s.library.FindUser(cmd.Context(), userID)
			if err != nil {
				return err
			}

			return a.printer(cmd).user(user)
		},
	}
}

func parseID(label, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number", loans.ErrInvalidInput, label)
	}

	return id, nil
}
