package sqlengine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-loans-go/loans"
	. "github.com/AntonStoeckl/library-loans-go/loans/sqlengine"
	"github.com/AntonStoeckl/library-loans-go/shell/config"
)

func Test_FactoryFunctions_Reject_NilConnections(t *testing.T) {
	testCases := []struct {
		name    string
		factory func() (*Engine, error)
	}{
		{"pgx pool", func() (*Engine, error) { return NewEngineFromPGXPool(nil) }},
		{"sql db", func() (*Engine, error) { return NewEngineFromSQLDB(nil) }},
		{"sqlite", func() (*Engine, error) { return NewEngineFromSQLite(nil) }},
		{"sqlx db", func() (*Engine, error) { return NewEngineFromSQLX(nil) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			engine, err := tc.factory()

			// assert
			assert.ErrorIs(t, err, loans.ErrNilDatabaseConnection)
			assert.Nil(t, engine)
		})
	}
}

func Test_NewEngineFromSQLX_DerivesTheDialectFromTheDriverName(t *testing.T) {
	// setup
	db, err := config.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// act
	sqliteEngine, sqliteErr := NewEngineFromSQLX(sqlx.NewDb(db, "sqlite"))
	postgresEngine, postgresErr := NewEngineFromSQLX(sqlx.NewDb(db, "postgres"))
	_, mysqlErr := NewEngineFromSQLX(sqlx.NewDb(db, "mysql"))

	// assert
	require.NoError(t, sqliteErr)
	require.NoError(t, postgresErr)
	assert.Equal(t, DialectSQLite, sqliteEngine.Dialect())
	assert.Equal(t, DialectPostgres, postgresEngine.Dialect())
	assert.ErrorIs(t, mysqlErr, loans.ErrUnsupportedDialect)
}

func Test_Options_Reject_InvalidValues(t *testing.T) {
	// setup
	db, err := config.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// act
	_, clockErr := NewEngineFromSQLite(db, WithClock(nil))
	_, isolationErr := NewEngineFromSQLite(db, WithIsolationLevel(loans.IsolationLevel(99)))
	engine, validErr := NewEngineFromSQLite(db, WithIsolationLevel(loans.Serializable))

	// assert
	assert.Error(t, clockErr)
	assert.ErrorIs(t, isolationErr, loans.ErrInvalidInput)
	require.NoError(t, validErr)
	assert.Equal(t, DialectSQLite, engine.Dialect())
}
