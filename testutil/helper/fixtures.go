package helper

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

// Fixture titles used across tests.
const (
	FixtureTitle  = "Dune"
	FixtureAuthor = "Frank Herbert"
)

// GivenUserWasRegistered registers a user named after the id.
func GivenUserWasRegistered(t testing.TB, ctx context.Context, catalog loans.Catalog, userID, borrowLimit int64) loans.User {
	t.Helper()

	user, err := catalog.RegisterUser(ctx, loans.NewUser{
		ID:          userID,
		Name:        fmt.Sprintf("Reader %d", userID),
		BorrowLimit: borrowLimit,
	})
	require.NoError(t, err, "error in arranging test data")

	return user
}

// GivenBookWasAdded adds quantity copies of the book.
func GivenBookWasAdded(t testing.TB, ctx context.Context, catalog loans.Catalog, title, author string, quantity int64) loans.Book {
	t.Helper()

	book, err := catalog.AddOrIncreaseBook(ctx, loans.NewBook{Title: title, Author: author, Quantity: quantity})
	require.NoError(t, err, "error in arranging test data")

	return book
}

// GivenBookWasBorrowed lends one copy to the user.
func GivenBookWasBorrowed(t testing.TB, ctx context.Context, service loans.Service, userID int64, title, author string) {
	t.Helper()

	require.NoError(t, service.Borrow(ctx, userID, title, author), "error in arranging test data")
}

// BookState reads the book back for assertions.
func BookState(t testing.TB, ctx context.Context, catalog loans.Catalog, title, author string) loans.Book {
	t.Helper()

	book, err := catalog.FindBook(ctx, title, author)
	require.NoError(t, err, "error reading the book")

	return book
}

// UserState reads the user and the active loans back for assertions.
func UserState(t testing.TB, ctx context.Context, catalog loans.Catalog, userID int64) loans.UserWithLoans {
	t.Helper()

	user, err := catalog.FindUser(ctx, userID)
	require.NoError(t, err, "error reading the user")

	return user
}

// FakeClock returns a clock that advances by step on every call, starting at start.
func FakeClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now := current
		current = current.Add(step)

		return now
	}
}
