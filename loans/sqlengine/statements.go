package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

type (
	sqlStatementString = string
	rowsAffectedInt64  = int64
)

// sqlStatement is implemented by every goqu dataset.
type sqlStatement interface {
	ToSQL() (string, []any, error)
}

var errBuildingStatementFailed = errors.New("building sql statement failed")

type observerContextKey struct{}

func withObserver(ctx context.Context, o *operationObserver) context.Context {
	return context.WithValue(ctx, observerContextKey{}, o)
}

func observerFrom(ctx context.Context) *operationObserver {
	o, _ := ctx.Value(observerContextKey{}).(*operationObserver)
	return o
}

// Every statement is prepared so values travel as positional arguments.

func (e *Engine) selectFrom(table any) *goqu.SelectDataset {
	return e.builder.From(table).Prepared(true)
}

func (e *Engine) insertInto(table string) *goqu.InsertDataset {
	return e.builder.Insert(table).Prepared(true)
}

func (e *Engine) update(table string) *goqu.UpdateDataset {
	return e.builder.Update(table).Prepared(true)
}

func (e *Engine) deleteFrom(table string) *goqu.DeleteDataset {
	return e.builder.Delete(table).Prepared(true)
}

func (e *Engine) toSQL(ctx context.Context, action string, stmt sqlStatement) (sqlStatementString, []any, error) {
	sqlText, args, err := stmt.ToSQL()
	if err != nil {
		e.logError(ctx, logMsgBuildStatementFailed+": "+action, err)
		return "", nil, errors.Join(loans.ErrTransactionFailed, errBuildingStatementFailed, err)
	}

	return sqlText, args, nil
}

// execStatement runs a write and returns the affected row count, which is the race signal
// for every conditional update.
func (e *Engine) execStatement(
	ctx context.Context,
	q adapters.Querier,
	action string,
	stmt sqlStatement,
) (rowsAffectedInt64, error) {

	sqlText, args, err := e.toSQL(ctx, action, stmt)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	result, execErr := q.Exec(ctx, sqlText, args...)
	e.logStatementWithDuration(ctx, sqlText, action, time.Since(start))
	observerFrom(ctx).statementExecuted()

	if execErr != nil {
		e.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlText)
		return 0, errors.Join(loans.ErrTransactionFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		return 0, errors.Join(loans.ErrTransactionFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// queryRows runs a read and calls scan once per row.
func (e *Engine) queryRows(
	ctx context.Context,
	q adapters.Querier,
	action string,
	stmt sqlStatement,
	scan func(rows adapters.DBRows) error,
) error {

	sqlText, args, err := e.toSQL(ctx, action, stmt)
	if err != nil {
		return err
	}

	start := time.Now()
	rows, queryErr := q.Query(ctx, sqlText, args...)
	e.logStatementWithDuration(ctx, sqlText, action, time.Since(start))
	observerFrom(ctx).statementExecuted()

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlText)
		return errors.Join(loans.ErrTransactionFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	for rows.Next() {
		if scanErr := scan(rows); scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, scanErr, logAttrQuery, sqlText)
			return errors.Join(loans.ErrTransactionFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, sqlText)
		return errors.Join(loans.ErrTransactionFailed, rowsErr)
	}

	return nil
}

// closeRows closes database rows and logs any errors.
func (e *Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}
