package loans_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

func Test_User_CanBorrow(t *testing.T) {
	assert.True(t, loans.User{BorrowLimit: 2, TotalBorrowed: 1}.CanBorrow())
	assert.False(t, loans.User{BorrowLimit: 2, TotalBorrowed: 2}.CanBorrow())
	assert.False(t, loans.User{BorrowLimit: 0}.CanBorrow())
}

func Test_Book_Availability(t *testing.T) {
	book := loans.Book{Quantity: 3, Availability: 1}
	assert.True(t, book.IsAvailable())
	assert.Equal(t, int64(2), book.OnLoan())

	assert.False(t, loans.Book{Quantity: 1}.IsAvailable())
}

func Test_Loan_IsActive(t *testing.T) {
	returnedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, loans.Loan{}.IsActive())
	assert.False(t, loans.Loan{ReturnedAt: &returnedAt}.IsActive())
}
