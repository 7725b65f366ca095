package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans-go/loans"
	. "github.com/AntonStoeckl/library-loans-go/testutil/helper"
	"github.com/AntonStoeckl/library-loans-go/testutil/helper/backendwrapper"
)

func Test_AddOrIncreaseBook_CreatesANewBook(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// act
	book, err := engine.AddOrIncreaseBook(ctx, loans.NewBook{Title: "  Dune ", Author: "Frank Herbert", Quantity: 3})

	// assert
	require.NoError(t, err)
	assert.Positive(t, book.ID)
	assert.Equal(t, FixtureTitle, book.Title, "title must be trimmed")
	assert.Equal(t, int64(3), book.Quantity)
	assert.Equal(t, int64(3), book.Availability)
}

func Test_AddOrIncreaseBook_IncreasesQuantityAndAvailability_Of_AnExistingBook(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenUserWasRegistered(t, ctx, engine, 1, 2)
	existing := GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 2)
	GivenBookWasBorrowed(t, ctx, engine, 1, FixtureTitle, FixtureAuthor)

	// act
	book, err := engine.AddOrIncreaseBook(ctx, loans.NewBook{Title: FixtureTitle, Author: FixtureAuthor, Quantity: 3})

	// assert
	require.NoError(t, err)
	assert.Equal(t, existing.ID, book.ID)
	assert.Equal(t, int64(5), book.Quantity)
	assert.Equal(t, int64(4), book.Availability)
}

func Test_AddOrIncreaseBook_TreatsSameTitleByAnotherAuthorAsANewBook(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	first := GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 1)

	// act
	second, err := engine.AddOrIncreaseBook(ctx, loans.NewBook{Title: FixtureTitle, Author: "Brian Herbert", Quantity: 1})

	// assert
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	books, err := engine.FindBooksByTitle(ctx, FixtureTitle)
	require.NoError(t, err)
	assert.Len(t, books, 2)
	assert.Equal(t, "Brian Herbert", books[0].Author, "books are ordered by author")
}

func Test_AddOrIncreaseBook_RejectsInvalidInput(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	testCases := []struct {
		name  string
		input loans.NewBook
	}{
		{"empty title", loans.NewBook{Title: " ", Author: FixtureAuthor, Quantity: 1}},
		{"empty author", loans.NewBook{Title: FixtureTitle, Author: "", Quantity: 1}},
		{"zero quantity", loans.NewBook{Title: FixtureTitle, Author: FixtureAuthor, Quantity: 0}},
		{"negative quantity", loans.NewBook{Title: FixtureTitle, Author: FixtureAuthor, Quantity: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := engine.AddOrIncreaseBook(ctx, tc.input)

			// assert
			assert.ErrorIs(t, err, loans.ErrInvalidInput)
		})
	}

	books, err := engine.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func Test_RemoveBook_DeletesABookThatWasNeverLent(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 2)

	// act
	err := engine.RemoveBook(ctx, FixtureTitle, FixtureAuthor)

	// assert
	require.NoError(t, err)

	_, err = engine.FindBook(ctx, FixtureTitle, FixtureAuthor)
	assert.ErrorIs(t, err, loans.ErrBookNotFound)
}

func Test_RemoveBook_Fails_When_TheBookHasLoanRecords(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenUserWasRegistered(t, ctx, engine, 1, 2)
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 1)
	GivenBookWasBorrowed(t, ctx, engine, 1, FixtureTitle, FixtureAuthor)
	require.NoError(t, engine.Return(ctx, 1, FixtureTitle, FixtureAuthor))

	// act
	err := engine.RemoveBook(ctx, FixtureTitle, FixtureAuthor)

	// assert
	assert.ErrorIs(t, err, loans.ErrBookHasLoans)
	assert.Equal(t, loans.KindBookHasLoans, loans.KindOf(err))
	assert.NotZero(t, BookState(t, ctx, engine, FixtureTitle, FixtureAuthor).ID)
}

func Test_RemoveBook_Fails_When_TheBookDoesNotExist(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// act
	err := engine.RemoveBook(ctx, FixtureTitle, FixtureAuthor)

	// assert
	assert.ErrorIs(t, err, loans.ErrBookNotFound)
}

func Test_RegisterUser_CreatesAndUpdatesAUser(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// act
	created, createErr := engine.RegisterUser(ctx, loans.NewUser{ID: 42, Name: "Ada", BorrowLimit: 1})
	updated, updateErr := engine.RegisterUser(ctx, loans.NewUser{ID: 42, Name: "Ada Lovelace", BorrowLimit: 5})

	// assert
	require.NoError(t, createErr)
	require.NoError(t, updateErr)
	assert.Equal(t, loans.User{ID: 42, Name: "Ada", BorrowLimit: 1, TotalBorrowed: 0}, created)
	assert.Equal(t, loans.User{ID: 42, Name: "Ada Lovelace", BorrowLimit: 5, TotalBorrowed: 0}, updated)
}

func Test_RegisterUser_KeepsTotalBorrowed_When_TheLimitChanges(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenUserWasRegistered(t, ctx, engine, 1, 3)
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 2)
	GivenBookWasBorrowed(t, ctx, engine, 1, FixtureTitle, FixtureAuthor)
	GivenBookWasBorrowed(t, ctx, engine, 1, FixtureTitle, FixtureAuthor)

	// act
	user, err := engine.RegisterUser(ctx, loans.NewUser{ID: 1, Name: "Reader 1", BorrowLimit: 2})

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(2), user.TotalBorrowed)
	assert.Equal(t, int64(2), user.BorrowLimit)
	assert.False(t, user.CanBorrow())
}

func Test_RegisterUser_Fails_When_TheLimitIsBelowTheActiveLoans(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenUserWasRegistered(t, ctx, engine, 1, 3)
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 2)
	GivenBookWasBorrowed(t, ctx, engine, 1, FixtureTitle, FixtureAuthor)
	GivenBookWasBorrowed(t, ctx, engine, 1, FixtureTitle, FixtureAuthor)

	// act
	_, err := engine.RegisterUser(ctx, loans.NewUser{ID: 1, Name: "Renamed", BorrowLimit: 1})

	// assert
	assert.ErrorIs(t, err, loans.ErrBorrowLimitBelowActiveLoans)

	user := UserState(t, ctx, engine, 1)
	assert.Equal(t, "Reader 1", user.Name, "nothing may change")
	assert.Equal(t, int64(3), user.BorrowLimit)
}

func Test_RegisterUser_RejectsInvalidInput(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	testCases := []struct {
		name  string
		input loans.NewUser
	}{
		{"zero id", loans.NewUser{ID: 0, Name: "Ada", BorrowLimit: 1}},
		{"empty name", loans.NewUser{ID: 1, Name: "  ", BorrowLimit: 1}},
		{"negative limit", loans.NewUser{ID: 1, Name: "Ada", BorrowLimit: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := engine.RegisterUser(ctx, tc.input)

			// assert
			assert.ErrorIs(t, err, loans.ErrInvalidInput)
		})
	}
}

func Test_ListBooks_And_ListUsers_ReturnOrderedResults(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenBookWasAdded(t, ctx, engine, "Solaris", "Stanislaw Lem", 1)
	GivenBookWasAdded(t, ctx, engine, "Children of Dune", FixtureAuthor, 1)
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 1)
	GivenUserWasRegistered(t, ctx, engine, 3, 1)
	GivenUserWasRegistered(t, ctx, engine, 1, 1)

	// act
	books, booksErr := engine.ListBooks(ctx)
	users, usersErr := engine.ListUsers(ctx)

	// assert
	require.NoError(t, booksErr)
	require.NoError(t, usersErr)

	titles := make([]string, 0, len(books))
	for _, book := range books {
		titles = append(titles, book.Title)
	}
	assert.Equal(t, []string{"Children of Dune", FixtureTitle, "Solaris"}, titles)

	require.Len(t, users, 2)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, int64(3), users[1].ID)
}

func Test_ListBooks_ReturnsAnEmptySlice_For_AnEmptyCatalog(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// act
	books, err := engine.ListBooks(ctx)

	// assert
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func Test_FindUser_Fails_For_AnUnknownUser(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// act
	_, err := engine.FindUser(ctx, 99)

	// assert
	assert.ErrorIs(t, err, loans.ErrUserNotFound)
}

func Test_FindBooksByAuthor_ReturnsTheAuthorsBooksOrderedByTitle(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 1)
	GivenBookWasAdded(t, ctx, engine, "Children of Dune", FixtureAuthor, 1)
	GivenBookWasAdded(t, ctx, engine, "Solaris", "Stanislaw Lem", 1)

	// act
	books, err := engine.FindBooksByAuthor(ctx, FixtureAuthor)
	_, unknownErr := engine.FindBooksByAuthor(ctx, "Nobody")

	// assert
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Children of Dune", books[0].Title)
	assert.Equal(t, FixtureTitle, books[1].Title)
	assert.ErrorIs(t, unknownErr, loans.ErrBookNotFound)
}

func Test_FindBooksByTitle_Fails_When_NoBookHasTheTitle(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// act
	_, err := engine.FindBooksByTitle(ctx, "Missing")

	// assert
	assert.ErrorIs(t, err, loans.ErrBookNotFound)
}

func Test_FindBooks_TrimTheirInputLikeFindBook(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 1)

	// act
	book, findErr := engine.FindBook(ctx, "  "+FixtureTitle+" ", " "+FixtureAuthor+"  ")
	byAuthor, byAuthorErr := engine.FindBooksByAuthor(ctx, " "+FixtureAuthor+"  ")
	byTitle, byTitleErr := engine.FindBooksByTitle(ctx, "  "+FixtureTitle+" ")

	// assert
	require.NoError(t, findErr)
	require.NoError(t, byAuthorErr)
	require.NoError(t, byTitleErr)
	assert.Equal(t, FixtureTitle, book.Title)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, FixtureTitle, byAuthor[0].Title)
	require.Len(t, byTitle, 1)
	assert.Equal(t, FixtureAuthor, byTitle[0].Author)
}
