package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine/internal/adapters"
)

// Re-exported observability interfaces, so callers configuring the engine need only this package.
type (
	Logger                     = loans.Logger
	ContextualLogger           = loans.ContextualLogger
	MetricsCollector           = loans.MetricsCollector
	ContextualMetricsCollector = loans.ContextualMetricsCollector
	TracingCollector           = loans.TracingCollector
	SpanContext                = loans.SpanContext
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

// beforeWriteHook runs inside the transaction after all precondition reads and before the first write.
type beforeWriteHook func(ctx context.Context, operation string, tx adapters.Querier) error

var errNilClock = errors.New("clock must not be nil")

// WithLogger sets the logger for the Engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: completed operations, rule violations and lost races (production-safe)
// Warn level: non-critical issues like rollback or cleanup failures
// Error level: backend failures that abort a transaction.
func WithLogger(logger Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
// It receives the same messages as the Logger, together with the operation context
// for trace correlation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// It receives Borrow/Return durations and counters for rule violations, lost races and
// transaction failures.
func WithMetrics(collector MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
// Every Borrow and Return gets a span with the outcome as its status.
func WithTracing(collector TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}

// WithClock replaces time.Now as the source of borrowed_at and returned_at timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) error {
		if clock == nil {
			return errNilClock
		}

		e.clock = clock

		return nil
	}
}

// WithIsolationLevel sets the isolation level of Borrow and Return transactions.
// SQLite ignores it, its transactions are always serialized.
func WithIsolationLevel(level loans.IsolationLevel) Option {
	return func(e *Engine) error {
		switch level {
		case loans.ReadCommitted, loans.RepeatableRead, loans.Serializable:
			e.isolation = level
			return nil
		default:
			return loans.ErrInvalidInput
		}
	}
}
