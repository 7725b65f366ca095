package adapters

import (
	"context"
	"database/sql"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

// SQLAdapter implements DBAdapter for sql.DB, used for PostgreSQL via lib/pq and for SQLite.
type SQLAdapter struct {
	db                *sql.DB
	supportsIsolation bool
}

// NewSQLAdapter creates a new SQL adapter. SQLite connections pass supportsIsolation=false.
func NewSQLAdapter(db *sql.DB, supportsIsolation bool) *SQLAdapter {
	return &SQLAdapter{db: db, supportsIsolation: supportsIsolation}
}

// Query executes a query on the pool.
func (s *SQLAdapter) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec executes a statement on the pool.
func (s *SQLAdapter) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// BeginTx starts a transaction with the requested isolation level.
func (s *SQLAdapter) BeginTx(ctx context.Context, isolation loans.IsolationLevel) (DBTx, error) {
	tx, err := s.db.BeginTx(ctx, stdTxOptions(isolation, s.supportsIsolation))
	if err != nil {
		return nil, err
	}

	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (s *sqlTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func (s *sqlTx) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

func (s *sqlTx) Commit(_ context.Context) error {
	return s.tx.Commit()
}

func (s *sqlTx) Rollback(_ context.Context) error {
	return ignoreTxDone(s.tx.Rollback())
}
