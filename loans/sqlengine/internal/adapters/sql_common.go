package adapters

import (
	"database/sql"
	"errors"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult interface.
type stdResult struct {
	result sql.Result
}

func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}

// stdTxOptions maps the isolation level for database/sql drivers.
// A nil result lets the driver use its default, which SQLite requires.
func stdTxOptions(isolation loans.IsolationLevel, supportsIsolation bool) *sql.TxOptions {
	if !supportsIsolation {
		return nil
	}

	switch isolation {
	case loans.RepeatableRead:
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	case loans.Serializable:
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
}

// ignoreTxDone treats a second Commit or Rollback as success.
func ignoreTxDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}
