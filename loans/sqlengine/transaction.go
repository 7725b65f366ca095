package sqlengine

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

// inTransaction runs fn in one backend transaction. The transaction is committed only when
// fn returns nil and is rolled back on every other exit path, including panics.
// PostgreSQL serialization failures become loans.ErrRaceLost. Errors that are neither expected
// outcomes nor already classified are joined with loans.ErrTransactionFailed.
func (e *Engine) inTransaction(ctx context.Context, fn func(tx adapters.DBTx) error) error {
	tx, beginErr := e.db.BeginTx(ctx, e.isolation)
	if beginErr != nil {
		e.logError(ctx, logMsgBeginFailed, beginErr)
		return errors.Join(loans.ErrTransactionFailed, beginErr)
	}

	committed := false

	defer func() {
		if committed {
			return
		}

		// the caller's context may already be canceled, the rollback must still reach the backend
		if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			e.logWarn(ctx, logMsgRollbackFailed, rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return classifyError(err)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		e.logError(ctx, logMsgCommitFailed, commitErr)
		return classifyError(commitErr)
	}

	committed = true

	return nil
}

func classifyError(err error) error {
	if pgErr := adapters.SerializationFailure(err); pgErr != nil {
		return errors.Join(loans.ErrRaceLost, pgErr)
	}

	if loans.IsExpected(err) ||
		errors.Is(err, loans.ErrTransactionFailed) ||
		errors.Is(err, loans.ErrInvalidInput) ||
		errors.Is(err, loans.ErrBookHasLoans) ||
		errors.Is(err, loans.ErrBorrowLimitBelowActiveLoans) {

		return err
	}

	return errors.Join(loans.ErrTransactionFailed, err)
}
