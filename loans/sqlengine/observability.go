package sqlengine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

const (
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "loans operation: "
	logMsgBuildStatementFailed = "failed to build sql statement"
	logMsgDBQueryFailed        = "database query execution failed"
	logMsgDBExecFailed         = "database statement execution failed"
	logMsgScanRowFailed        = "failed to scan database row"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgRowsAffectedFailed   = "failed to get rows affected count"
	logMsgBeginFailed          = "failed to begin transaction"
	logMsgCommitFailed         = "failed to commit transaction"
	logMsgRollbackFailed       = "failed to roll back transaction"
	logMsgCompleted            = " completed"
	logMsgRejected             = " rejected"
	logMsgRaceLost             = " lost a race against a concurrent transaction"
	logMsgFailed               = " failed"

	logAttrError        = "error"
	logAttrErrorKind    = "error_kind"
	logAttrQuery        = "query"
	logAttrDurationMS   = "duration_ms"
	logAttrOperationID  = "operation_id"
	logAttrUserID       = "user_id"
	logAttrTitle        = "title"
	logAttrAuthor       = "author"
	logAttrRowsAffected = "rows_affected"

	operationBorrow = "borrow"
	operationReturn = "return"

	spanNameBorrow = "loans.borrow"
	spanNameReturn = "loans.return"

	spanAttrOperation   = "operation"
	spanAttrOperationID = "operation_id"
	spanAttrUserID      = "user_id"
	spanAttrTitle       = "book.title"
	spanAttrAuthor      = "book.author"
	spanAttrErrorKind   = "error_kind"
	spanAttrDurationMS  = "duration_ms"

	metricBorrowDuration      = "loans_borrow_duration_seconds"
	metricReturnDuration      = "loans_return_duration_seconds"
	metricRuleViolations      = "loans_rule_violations_total"
	metricRacesLost           = "loans_races_lost_total"
	metricTransactionFailures = "loans_transaction_failures_total"
	metricStatementsExecuted  = "loans_statements_per_transaction"

	labelOperation = "operation"
	labelStatus    = "status"
	labelErrorKind = "error_kind"

	statusSuccess  = "success"
	statusRejected = "rejected"
	statusRaceLost = "race_lost"
	statusError    = "error"
)

// === Logging ===

// logDebug sends a debug message to every configured logger.
func (e *Engine) logDebug(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

// logInfo sends an info message to every configured logger.
func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

// logWarn sends a warning to every configured logger.
func (e *Engine) logWarn(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if e.logger != nil {
		e.logger.Warn(msg, allArgs...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, allArgs...)
	}
}

// logError sends an error message to every configured logger.
func (e *Engine) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if e.logger != nil {
		e.logger.Error(msg, allArgs...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// logStatementWithDuration logs SQL statements with execution time at debug level.
func (e *Engine) logStatementWithDuration(ctx context.Context, sqlStatement string, action string, duration time.Duration) {
	e.logDebug(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlStatement)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Metrics ===

func (e *Engine) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextual, ok := e.metricsCollector.(loans.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metric, duration, labels)
}

func (e *Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextual, ok := e.metricsCollector.(loans.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metric, labels)
}

func (e *Engine) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if e.metricsCollector == nil {
		return
	}

	if contextual, ok := e.metricsCollector.(loans.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.metricsCollector.RecordValue(metric, value, labels)
}

// === Operation observer ===
// One observer follows a Borrow or Return from start to outcome and reports it to the
// configured logger, metrics collector and tracing collector.

type operationObserver struct {
	e          *Engine
	ctx        context.Context
	operation  string
	span       SpanContext
	start      time.Time
	statements int
	logArgs    []any
}

func (e *Engine) startOperation(
	ctx context.Context,
	operation string,
	userID int64,
	title, author string,
) (*operationObserver, context.Context) {

	operationID := uuid.NewString()

	spanName := spanNameBorrow
	if operation == operationReturn {
		spanName = spanNameReturn
	}

	if e.tracingCollector != nil {
		ctx, span := e.tracingCollector.StartSpan(ctx, spanName, map[string]string{
			spanAttrOperation:   operation,
			spanAttrOperationID: operationID,
			spanAttrUserID:      strconv.FormatInt(userID, 10),
			spanAttrTitle:       title,
			spanAttrAuthor:      author,
		})

		return e.newObserver(ctx, operation, operationID, userID, title, author, span), ctx
	}

	return e.newObserver(ctx, operation, operationID, userID, title, author, nil), ctx
}

func (e *Engine) newObserver(
	ctx context.Context,
	operation, operationID string,
	userID int64,
	title, author string,
	span SpanContext,
) *operationObserver {

	return &operationObserver{
		e:         e,
		ctx:       ctx,
		operation: operation,
		span:      span,
		start:     time.Now(),
		logArgs: []any{
			logAttrOperationID, operationID,
			logAttrUserID, userID,
			logAttrTitle, title,
			logAttrAuthor, author,
		},
	}
}

// statementExecuted counts statements for the per-transaction statement metric.
func (o *operationObserver) statementExecuted() {
	if o != nil {
		o.statements++
	}
}

// finish reports the outcome of the operation. Rule violations and lost races are
// logged at info level, only backend failures are logged as errors.
func (o *operationObserver) finish(err error) {
	duration := time.Since(o.start)
	kind := loans.KindOf(err)
	args := append(o.logArgs, logAttrDurationMS, toMilliseconds(duration))

	var status string

	switch {
	case err == nil:
		status = statusSuccess
		o.e.logInfo(o.ctx, logMsgOperation+o.operation+logMsgCompleted, args...)

	case loans.IsRuleViolation(err):
		status = statusRejected
		o.e.logInfo(o.ctx, logMsgOperation+o.operation+logMsgRejected, append(args, logAttrErrorKind, string(kind))...)
		o.e.incrementCounter(o.ctx, metricRuleViolations, map[string]string{
			labelOperation: o.operation,
			labelErrorKind: string(kind),
		})

	case loans.IsRetryable(err):
		status = statusRaceLost
		o.e.logInfo(o.ctx, logMsgOperation+o.operation+logMsgRaceLost, append(args, logAttrError, err.Error())...)
		o.e.incrementCounter(o.ctx, metricRacesLost, map[string]string{labelOperation: o.operation})

	default:
		status = statusError
		o.e.logError(o.ctx, logMsgOperation+o.operation+logMsgFailed, err, append(args, logAttrErrorKind, string(kind))...)
		o.e.incrementCounter(o.ctx, metricTransactionFailures, map[string]string{
			labelOperation: o.operation,
			labelErrorKind: string(kind),
		})
	}

	durationMetric := metricBorrowDuration
	if o.operation == operationReturn {
		durationMetric = metricReturnDuration
	}

	o.e.recordDuration(o.ctx, durationMetric, duration, map[string]string{
		labelOperation: o.operation,
		labelStatus:    status,
	})

	o.e.recordValue(o.ctx, metricStatementsExecuted, float64(o.statements), map[string]string{
		labelOperation: o.operation,
		labelStatus:    status,
	})

	o.finishSpan(status, kind, duration)
}

func (o *operationObserver) finishSpan(status string, kind loans.Kind, duration time.Duration) {
	if o.e.tracingCollector == nil || o.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration)),
	}

	if kind != loans.KindNone {
		attrs[spanAttrErrorKind] = string(kind)
	}

	o.e.tracingCollector.FinishSpan(o.span, status, attrs)
}
