package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-loans-go/shell"
)

func newBorrowCommand(a *app) *cobra.Command {
	return newLoanCommand(a, "borrow", "Lend one copy of a book to a user", (*shell.Library).Borrow)
}

func newReturnCommand(a *app) *cobra.Command {
	return newLoanCommand(a, "return", "Take back the copy of a book the user borrowed first", (*shell.Library).Return)
}

func newLoanCommand(
	a *app,
	use string,
	short string,
	operation func(*shell.Library, context.Context, shell.LoanCommand) (shell.Outcome, error),
) *cobra.Command {

	var command shell.LoanCommand

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			outcome, opErr := operation(s.library, cmd.Context(), command)
			if printErr := a.printer(cmd).outcome(outcome); printErr != nil {
				return printErr
			}

			if opErr != nil {
				return errReported{err: opErr}
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&command.UserID, "user", 0, "user id")
	cmd.Flags().StringVar(&command.Title, "title", "", "book title")
	cmd.Flags().StringVar(&command.Author, "author", "", "book author")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}
