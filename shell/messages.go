package shell

import (
	"errors"
	"strings"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

var friendlyMessages = map[loans.Kind]string{
	loans.KindUserNotFound:            "User not found.",
	loans.KindBorrowLimitExceeded:     "Borrow limit exceeded.",
	loans.KindBookNotFound:            "Book not found.",
	loans.KindBookUnavailable:         "No copies of this book are available.",
	loans.KindNoActiveLoan:            "This user has not borrowed this book.",
	loans.KindRaceLost:                "Another request changed the book or user at the same time, please try again.",
	loans.KindBookHasLoans:            "The book has loan records and cannot be removed.",
	loans.KindBorrowLimitBelowActive:  "The borrow limit cannot be lower than the number of borrowed books.",
	loans.KindContextCanceled:         "The request was canceled.",
	loans.KindContextDeadlineExceeded: "The request timed out.",
	loans.KindTransactionFailed:       "The library database could not complete the request.",
}

// Describe turns an error from the loans packages into a short message for library staff.
// Invalid input keeps the field details, all other kinds get a fixed sentence.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	kind := loans.KindOf(err)

	if kind == loans.KindInvalidInput {
		detail := strings.TrimPrefix(err.Error(), loans.ErrInvalidInput.Error())
		detail = strings.TrimPrefix(detail, ": ")

		return "Invalid input: " + detail + "."
	}

	if msg, ok := friendlyMessages[kind]; ok {
		return msg
	}

	if errors.Is(err, loans.ErrTransactionFailed) {
		return friendlyMessages[loans.KindTransactionFailed]
	}

	return "Unexpected error: " + err.Error()
}
