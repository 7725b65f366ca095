package shell_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell"
	"github.com/AntonStoeckl/library-loans-go/testutil/helper"
	"github.com/AntonStoeckl/library-loans-go/testutil/helper/backendwrapper"
)

// scriptedService answers Borrow and Return with the scripted errors in order, then nil.
type scriptedService struct {
	mu     sync.Mutex
	script []error
	calls  []string
}

func (s *scriptedService) next(operation string, userID int64, title, author string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, operation+":"+title+"/"+author)

	if len(s.script) == 0 {
		return nil
	}

	err := s.script[0]
	s.script = s.script[1:]

	return err
}

func (s *scriptedService) Borrow(_ context.Context, userID int64, title, author string) error {
	return s.next(shell.OperationBorrow, userID, title, author)
}

func (s *scriptedService) Return(_ context.Context, userID int64, title, author string) error {
	return s.next(shell.OperationReturn, userID, title, author)
}

func newLibrary(t *testing.T, service loans.Service, options ...shell.LibraryOption) *shell.Library {
	t.Helper()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	library, err := shell.NewLibrary(service, engine, options...)
	require.NoError(t, err)

	return library
}

func Test_Library_Borrow_RetriesLostRacesAndReportsAttempts(t *testing.T) {
	// setup
	service := &scriptedService{script: []error{loans.ErrRaceLost, loans.ErrRaceLost}}
	metrics := helper.NewMetricsCollectorSpy()
	logHandler := helper.NewLogHandlerSpy(false)
	library := newLibrary(t, service,
		shell.WithRetry(shell.WithBaseDelay(time.Millisecond)),
		shell.WithMetrics(metrics),
		shell.WithLogger(slog.New(logHandler)),
	)

	// act
	outcome, err := library.Borrow(context.Background(), shell.LoanCommand{UserID: 1, Title: " Dune ", Author: "Frank Herbert"})

	// assert
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, "Book borrowed successfully.", outcome.Message)
	assert.Equal(t, 3, outcome.Retry.Attempts)
	assert.Equal(t, []string{"borrow:Dune/Frank Herbert", "borrow:Dune/Frank Herbert", "borrow:Dune/Frank Herbert"}, service.calls)

	values := metrics.ValueRecords()
	require.Len(t, values, 1)
	assert.Equal(t, float64(3), values[0].Value)
	assert.True(t, logHandler.HasInfoLog("operation needed more than one attempt").WithAttrValue("attempts", "3").Assert())
}

func Test_Library_Return_DoesNotRetryRuleViolations(t *testing.T) {
	// setup
	service := &scriptedService{script: []error{loans.ErrNoActiveLoan}}
	library := newLibrary(t, service)

	// act
	outcome, err := library.Return(context.Background(), shell.LoanCommand{UserID: 1, Title: "Dune", Author: "Frank Herbert"})

	// assert
	assert.ErrorIs(t, err, loans.ErrNoActiveLoan)
	assert.False(t, outcome.Succeeded())
	assert.Equal(t, loans.KindNoActiveLoan, outcome.Kind)
	assert.Equal(t, "This user has not borrowed this book.", outcome.Message)
	assert.Equal(t, 1, outcome.Retry.Attempts)
	assert.Len(t, service.calls, 1)
}

func Test_Library_RejectsInvalidCommands_WithoutCallingTheEngine(t *testing.T) {
	// setup
	service := &scriptedService{}
	library := newLibrary(t, service)

	// act
	outcome, err := library.Borrow(context.Background(), shell.LoanCommand{UserID: 0, Title: "", Author: "Frank Herbert"})

	// assert
	assert.ErrorIs(t, err, loans.ErrInvalidInput)
	assert.Equal(t, loans.KindInvalidInput, outcome.Kind)
	assert.Contains(t, outcome.Message, "userid must be greater than 0")
	assert.Contains(t, outcome.Message, "title is required")
	assert.Empty(t, service.calls)
}

func Test_Library_GivesAccessToTheCatalog(t *testing.T) {
	// setup
	ctx := context.Background()
	library := newLibrary(t, &scriptedService{})

	// act
	helper.GivenBookWasAdded(t, ctx, library, helper.FixtureTitle, helper.FixtureAuthor, 2)
	books, err := library.ListBooks(ctx)

	// assert
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(2), books[0].Quantity)
}

func Test_Library_WorksEndToEnd_OnTheEngine(t *testing.T) {
	// setup
	ctx := context.Background()
	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()
	library, err := shell.NewLibrary(engine, engine)
	require.NoError(t, err)

	helper.GivenUserWasRegistered(t, ctx, library, 1, 1)
	helper.GivenBookWasAdded(t, ctx, library, helper.FixtureTitle, helper.FixtureAuthor, 1)
	command := shell.LoanCommand{UserID: 1, Title: helper.FixtureTitle, Author: helper.FixtureAuthor}

	// act
	borrowed, borrowErr := library.Borrow(ctx, command)
	again, againErr := library.Borrow(ctx, command)
	returned, returnErr := library.Return(ctx, command)

	// assert
	require.NoError(t, borrowErr)
	require.NoError(t, returnErr)
	assert.True(t, borrowed.Succeeded())
	assert.True(t, returned.Succeeded())
	assert.Equal(t, "Book returned successfully.", returned.Message)
	assert.ErrorIs(t, againErr, loans.ErrBorrowLimitExceeded)
	assert.Equal(t, "Borrow limit exceeded.", again.Message)
}

func Test_NewLibrary_RejectsNilDependencies(t *testing.T) {
	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	_, err := shell.NewLibrary(nil, engine)
	assert.ErrorIs(t, err, shell.ErrNilService)

	_, err = shell.NewLibrary(engine, nil)
	assert.ErrorIs(t, err, shell.ErrNilCatalog)

	_, err = shell.NewLibrary(engine, engine, shell.WithMetrics(nil))
	assert.ErrorIs(t, err, shell.ErrNilMetricsCollector)
}

func Test_Describe_MapsErrorKindsToFriendlyMessages(t *testing.T) {
	assert.Equal(t, "", shell.Describe(nil))
	assert.Equal(t, "User not found.", shell.Describe(loans.ErrUserNotFound))
	assert.Equal(t, "No copies of this book are available.", shell.Describe(loans.ErrBookUnavailable))
	assert.Equal(t, "The library database could not complete the request.", shell.Describe(loans.ErrTransactionFailed))
	assert.Equal(t, "Invalid input: quantity must be greater than 0.",
		shell.Describe(loans.Validate(loans.NewBook{Title: "Dune", Author: "Frank Herbert"})))
}
