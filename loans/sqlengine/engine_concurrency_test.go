package sqlengine_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans-go/loans"
	. "github.com/AntonStoeckl/library-loans-go/testutil/helper"
	"github.com/AntonStoeckl/library-loans-go/testutil/helper/backendwrapper"
)

func Test_Borrow_Concurrently_GrantsTheLastCopyExactlyOnce(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	const contenders = 8

	// arrange
	for userID := int64(1); userID <= contenders; userID++ {
		GivenUserWasRegistered(t, ctx, engine, userID, 1)
	}
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 1)

	// act
	results := make([]error, contenders)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = engine.Borrow(ctx, int64(i+1), FixtureTitle, FixtureAuthor)
		}(i)
	}
	close(start)
	wg.Wait()

	// assert
	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}

		assert.True(t, loans.IsExpected(err), "unexpected error: %v", err)
		assert.True(t,
			errors.Is(err, loans.ErrBookUnavailable) || errors.Is(err, loans.ErrRaceLost),
			"losers must see BookUnavailable or RaceLost, got: %v", err)
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, int64(0), BookState(t, ctx, engine, FixtureTitle, FixtureAuthor).Availability)
}

func Test_Borrow_Concurrently_NeverExceedsTheBorrowLimit(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	const attempts = 6

	// arrange
	GivenUserWasRegistered(t, ctx, engine, 1, 2)
	for i := 0; i < attempts; i++ {
		GivenBookWasAdded(t, ctx, engine, fmt.Sprintf("Volume %d", i), FixtureAuthor, 1)
	}

	// act
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = engine.Borrow(ctx, 1, fmt.Sprintf("Volume %d", i), FixtureAuthor)
		}(i)
	}
	wg.Wait()

	// assert
	user := UserState(t, ctx, engine, 1)
	assert.Equal(t, int64(2), user.TotalBorrowed)
	assert.Len(t, user.ActiveLoans, 2)
}

func Test_BorrowAndReturn_Concurrently_PreserveTheInvariants(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	const (
		users      = 6
		books      = 3
		operations = 40
	)

	// arrange
	for userID := int64(1); userID <= users; userID++ {
		GivenUserWasRegistered(t, ctx, engine, userID, 2)
	}
	for i := 0; i < books; i++ {
		GivenBookWasAdded(t, ctx, engine, fmt.Sprintf("Volume %d", i), FixtureAuthor, 2)
	}

	// act
	var wg sync.WaitGroup
	for userID := int64(1); userID <= users; userID++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			rng := rand.New(rand.NewPCG(uint64(userID), 42))
			for i := 0; i < operations; i++ {
				title := fmt.Sprintf("Volume %d", rng.IntN(books))

				var err error
				if rng.IntN(2) == 0 {
					err = engine.Borrow(ctx, userID, title, FixtureAuthor)
				} else {
					err = engine.Return(ctx, userID, title, FixtureAuthor)
				}

				assert.True(t, err == nil || loans.IsExpected(err), "unexpected error: %v", err)
			}
		}(userID)
	}
	wg.Wait()

	// assert
	activeByTitle := make(map[string]int64)

	for userID := int64(1); userID <= users; userID++ {
		user := UserState(t, ctx, engine, userID)
		assert.Equal(t, int64(len(user.ActiveLoans)), user.TotalBorrowed, "user %d", userID)
		assert.LessOrEqual(t, user.TotalBorrowed, user.BorrowLimit, "user %d", userID)

		for _, loan := range user.ActiveLoans {
			activeByTitle[loan.Title]++
		}
	}

	allBooks, err := engine.ListBooks(ctx)
	require.NoError(t, err)

	for _, book := range allBooks {
		assert.GreaterOrEqual(t, book.Availability, int64(0), book.Title)
		assert.Equal(t, book.Quantity, book.Availability+activeByTitle[book.Title], book.Title)
	}
}
