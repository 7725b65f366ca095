package sqlengine

import (
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

// Dialect names the SQL flavor an Engine generates statements for.
type Dialect string

// Supported dialects, named like their goqu dialect registrations.
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

const (
	tableUsers = "users"
	tableBooks = "books"
	tableLoans = "loans"

	colUserID        = "user_id"
	colName          = "name"
	colBorrowLimit   = "borrow_limit"
	colTotalBorrowed = "total_borrowed"
	colBookID        = "book_id"
	colTitle         = "title"
	colAuthor        = "author"
	colQuantity      = "quantity"
	colAvailability  = "availability"
	colLoanID        = "loan_id"
	colBorrowedAt    = "borrowed_at"
	colReturnedAt    = "returned_at"
)

// Engine implements loans.Service and loans.Catalog on top of a relational backend.
// It is safe for concurrent use, all state lives in the database.
type Engine struct {
	db               adapters.DBAdapter
	dialect          Dialect
	builder          goqu.DialectWrapper
	isolation        loans.IsolationLevel
	clock            func() time.Time
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	beforeWrite      beforeWriteHook
}

var (
	_ loans.Service = (*Engine)(nil)
	_ loans.Catalog = (*Engine)(nil)
)

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, loans.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), DialectPostgres, options)
}

// NewEngineFromSQLDB creates a new Engine using a PostgreSQL sql.DB (lib/pq or pgx stdlib).
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, loans.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db, true), DialectPostgres, options)
}

// NewEngineFromSQLite creates a new Engine using a modernc.org/sqlite sql.DB.
// The connection should enable foreign keys, begin IMMEDIATE transactions and allow a single
// open connection, see config.SQLiteDSN.
func NewEngineFromSQLite(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, loans.ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db, false), DialectSQLite, options)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB.
// The dialect is derived from the driver name.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, loans.ErrNilDatabaseConnection
	}

	dialect, err := dialectForDriver(db.DriverName())
	if err != nil {
		return nil, err
	}

	return newEngine(adapters.NewSQLXAdapter(db), dialect, options)
}

func newEngine(db adapters.DBAdapter, dialect Dialect, options []Option) (*Engine, error) {
	e := &Engine{
		db:        db,
		dialect:   dialect,
		builder:   goqu.Dialect(string(dialect)),
		isolation: loans.ReadCommitted,
		clock:     time.Now,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func dialectForDriver(driverName string) (Dialect, error) {
	switch driverName {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", loans.ErrUnsupportedDialect
	}
}

// Dialect returns the SQL dialect the engine generates statements for.
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// now returns the engine clock in UTC with microsecond precision, matching what both backends store.
func (e *Engine) now() time.Time {
	return e.clock().UTC().Truncate(time.Microsecond)
}
