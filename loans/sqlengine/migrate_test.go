package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/library-loans-go/testutil/helper"
	"github.com/AntonStoeckl/library-loans-go/testutil/helper/backendwrapper"
)

func Test_Migrate_IsIdempotent(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := backendwrapper.CreateWrapperWithTestConfig(t).Engine()

	// arrange
	GivenBookWasAdded(t, ctx, engine, FixtureTitle, FixtureAuthor, 1)

	// act
	err := engine.Migrate(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), BookState(t, ctx, engine, FixtureTitle, FixtureAuthor).Quantity, "data must survive a second run")
}

func Test_Migrate_CreatesSchemaThatEnforcesTheCopyInvariant(t *testing.T) {
	// setup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := backendwrapper.CreateWrapperWithTestConfig(t)

	// arrange
	GivenBookWasAdded(t, ctx, wrapper.Engine(), FixtureTitle, FixtureAuthor, 1)

	// act
	err := wrapper.TryExec("UPDATE books SET availability = quantity + 1")

	// assert
	assert.Error(t, err, "availability above quantity must be rejected by a CHECK constraint")
	assert.Equal(t, int64(1), BookState(t, ctx, wrapper.Engine(), FixtureTitle, FixtureAuthor).Availability)
}
