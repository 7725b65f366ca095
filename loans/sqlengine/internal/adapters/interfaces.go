package adapters

import (
	"context"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

// Querier runs statements, either directly on the pool or inside a transaction.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBAdapter defines the database operations needed by the loan engine.
type DBAdapter interface {
	Querier
	BeginTx(ctx context.Context, isolation loans.IsolationLevel) (DBTx, error)
}

// DBTx is an open transaction. Rollback after Commit is a harmless no-op for every adapter.
type DBTx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
