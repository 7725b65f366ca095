package sqlengine

import (
	"context"

	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

// Operation names passed to the before-write hook.
const (
	OperationBorrow = operationBorrow
	OperationReturn = operationReturn
)

// WithBeforeWriteHook injects a step that runs on the operation's transaction after all
// precondition reads and before the first write. Tests use it to interleave a concurrent
// change at the exact point a real race would happen.
func WithBeforeWriteHook(hook func(ctx context.Context, operation string, tx adapters.Querier) error) Option {
	return func(e *Engine) error {
		e.beforeWrite = hook
		return nil
	}
}

// ExecOn runs raw SQL on the querier passed to a before-write hook.
func ExecOn(ctx context.Context, tx adapters.Querier, query string) error {
	_, err := tx.Exec(ctx, query)
	return err
}

// ClassifyError maps a failure inside a transaction to the error Borrow and Return report.
var ClassifyError = classifyError

// Querier is the statement runner handed to the before-write hook.
type Querier = adapters.Querier
