package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // database/sql driver "postgres"
	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine"
)

// OpenPGXPool creates a pgx connection pool.
func OpenPGXPool(ctx context.Context, cfg DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing pgx dsn: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // validated positive
	poolConfig.MinConns = int32(cfg.MinConns)     //nolint:gosec // validated small
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return pool, nil
}

// OpenPostgresSQLDB creates a database/sql pool using lib/pq.
func OpenPostgresSQLDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	applyPoolSettings(db, cfg)

	if err := ping(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenSQLX creates a sqlx pool using lib/pq.
func OpenSQLX(ctx context.Context, cfg DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres via sqlx: %w", err)
	}

	applyPoolSettings(db.DB, cfg)

	if err := ping(ctx, db.DB, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenSQLite opens the SQLite database file with foreign keys, WAL and a busy timeout.
// A single open connection serializes the writers of this process. Writers in other
// processes are serialized by the immediate transaction lock of SQLiteDSN.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	return db, nil
}

// SQLiteDSN builds the modernc.org/sqlite DSN with the pragmas the engine relies on.
// Transactions begin IMMEDIATE, so they take the write lock before their first read and
// a concurrent writer waits for the busy timeout instead of failing on a lock upgrade.
func SQLiteDSN(path string) string {
	params := url.Values{}
	params.Set("_txlock", "immediate")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")

	if path != ":memory:" {
		params.Add("_pragma", "journal_mode(WAL)")
	}

	return "file:" + path + "?" + params.Encode()
}

func applyPoolSettings(db *sql.DB, cfg DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func ping(ctx context.Context, db *sql.DB, cfg DatabaseConfig) error {
	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}

	return nil
}

// Backend is an opened database together with the engine running on it.
type Backend struct {
	Engine *sqlengine.Engine
	Driver string
	closer func() error
}

// Close releases the database connections.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}

	return b.closer()
}

// Connect opens the configured backend and creates the engine on it.
// With AutoMigrate set the schema migrations are applied before returning.
func Connect(ctx context.Context, cfg DatabaseConfig, options ...sqlengine.Option) (*Backend, error) {
	options = append([]sqlengine.Option{sqlengine.WithIsolationLevel(cfg.Isolation())}, options...)

	backend, err := connect(ctx, cfg, options)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := backend.Engine.Migrate(ctx); err != nil {
			return nil, errors.Join(err, backend.Close())
		}
	}

	return backend, nil
}

func connect(ctx context.Context, cfg DatabaseConfig, options []sqlengine.Option) (*Backend, error) {
	switch cfg.Driver {
	case DriverPGX:
		pool, err := OpenPGXPool(ctx, cfg)
		if err != nil {
			return nil, err
		}

		engine, err := sqlengine.NewEngineFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, err
		}

		return &Backend{Engine: engine, Driver: cfg.Driver, closer: func() error { pool.Close(); return nil }}, nil

	case DriverSQL:
		db, err := OpenPostgresSQLDB(ctx, cfg)
		if err != nil {
			return nil, err
		}

		engine, err := sqlengine.NewEngineFromSQLDB(db, options...)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}

		return &Backend{Engine: engine, Driver: cfg.Driver, closer: db.Close}, nil

	case DriverSQLX:
		db, err := OpenSQLX(ctx, cfg)
		if err != nil {
			return nil, err
		}

		engine, err := sqlengine.NewEngineFromSQLX(db, options...)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}

		return &Backend{Engine: engine, Driver: cfg.Driver, closer: db.Close}, nil

	case DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		engine, err := sqlengine.NewEngineFromSQLite(db, options...)
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}

		return &Backend{Engine: engine, Driver: cfg.Driver, closer: db.Close}, nil

	default:
		return nil, fmt.Errorf("%w: unknown database.driver %q", ErrInvalidConfig, cfg.Driver)
	}
}
