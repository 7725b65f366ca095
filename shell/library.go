package shell

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

// Operation names used in outcomes, logs and metric labels.
const (
	OperationBorrow = "borrow"
	OperationReturn = "return"

	attemptsMetric = "shell_attempts_per_operation"
	labelStatus    = "status"

	logMsgRetried = "operation needed more than one attempt"
)

var (
	// ErrNilService is returned when NewLibrary gets no loan service.
	ErrNilService = errors.New("loan service must not be nil")

	// ErrNilCatalog is returned when NewLibrary gets no catalog.
	ErrNilCatalog = errors.New("catalog must not be nil")
)

// LoanCommand asks to borrow or return one copy of the book (Title, Author) for UserID.
type LoanCommand struct {
	UserID int64  `validate:"gt=0"`
	Title  string `validate:"required"`
	Author string `validate:"required"`
}

// Normalize trims surrounding whitespace from title and author.
func (c LoanCommand) Normalize() LoanCommand {
	c.Title = strings.TrimSpace(c.Title)
	c.Author = strings.TrimSpace(c.Author)

	return c
}

// Outcome reports how a Borrow or Return ended.
type Outcome struct {
	Operation string
	UserID    int64
	Title     string
	Author    string
	Kind      loans.Kind
	Message   string
	Retry     RetryMetrics
}

// Succeeded reports whether the operation committed.
func (o Outcome) Succeeded() bool {
	return o.Kind == loans.KindNone
}

// Library runs loan commands against the engine with retry and gives access to the catalog.
type Library struct {
	loans.Catalog

	service      loans.Service
	retryOptions []RetryOption
	metrics      loans.MetricsCollector
	logger       *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*Library) error

// NewLibrary creates a Library on top of the loan service and the catalog.
func NewLibrary(service loans.Service, catalog loans.Catalog, options ...LibraryOption) (*Library, error) {
	if service == nil {
		return nil, ErrNilService
	}

	if catalog == nil {
		return nil, ErrNilCatalog
	}

	library := &Library{Catalog: catalog, service: service}

	for _, option := range options {
		if err := option(library); err != nil {
			return nil, err
		}
	}

	return library, nil
}

// WithRetry sets the retry policy for lost races.
func WithRetry(options ...RetryOption) LibraryOption {
	return func(l *Library) error {
		l.retryOptions = append(l.retryOptions, options...)
		return nil
	}
}

// WithMetrics reports retry metrics and the number of attempts per operation.
func WithMetrics(collector loans.MetricsCollector) LibraryOption {
	return func(l *Library) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		l.metrics = collector

		return nil
	}
}

// WithLogger logs operations that needed retries.
func WithLogger(logger *slog.Logger) LibraryOption {
	return func(l *Library) error {
		l.logger = logger
		return nil
	}
}

// Borrow lends a copy, resubmitting the command while it loses races.
// The returned error is the engine's error, the Outcome describes it for the user.
func (l *Library) Borrow(ctx context.Context, command LoanCommand) (Outcome, error) {
	return l.run(ctx, OperationBorrow, command, l.service.Borrow)
}

// Return gives back the oldest borrowed copy, resubmitting the command while it loses races.
func (l *Library) Return(ctx context.Context, command LoanCommand) (Outcome, error) {
	return l.run(ctx, OperationReturn, command, l.service.Return)
}

func (l *Library) run(
	ctx context.Context,
	operation string,
	command LoanCommand,
	call func(ctx context.Context, userID int64, title, author string) error,
) (Outcome, error) {

	command = command.Normalize()

	outcome := Outcome{
		Operation: operation,
		UserID:    command.UserID,
		Title:     command.Title,
		Author:    command.Author,
	}

	if err := loans.Validate(command); err != nil {
		outcome.Kind = loans.KindOf(err)
		outcome.Message = Describe(err)
		outcome.Retry = RetryMetrics{LastErrorKind: outcome.Kind}

		return outcome, err
	}

	options := l.retryOptions
	if l.metrics != nil {
		options = append(append([]RetryOption{}, options...), WithRetryMetrics(l.metrics, operation))
	}

	meta, err := RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		return call(ctx, command.UserID, command.Title, command.Author)
	}, options...)

	outcome.Kind = loans.KindOf(err)
	outcome.Message = describeOutcome(operation, err)
	outcome.Retry = meta

	l.report(ctx, outcome)

	return outcome, err
}

func (l *Library) report(ctx context.Context, outcome Outcome) {
	if l.metrics != nil && outcome.Retry.Attempts > 0 {
		labels := map[string]string{labelOperation: outcome.Operation, labelStatus: string(outcome.Kind)}

		if contextual, ok := l.metrics.(loans.ContextualMetricsCollector); ok {
			contextual.RecordValueContext(ctx, attemptsMetric, float64(outcome.Retry.Attempts), labels)
		} else {
			l.metrics.RecordValue(attemptsMetric, float64(outcome.Retry.Attempts), labels)
		}
	}

	if l.logger != nil && outcome.Retry.Attempts > 1 {
		l.logger.InfoContext(ctx, logMsgRetried,
			slog.String(labelOperation, outcome.Operation),
			slog.Int("attempts", outcome.Retry.Attempts),
			slog.Duration("total_delay", outcome.Retry.TotalDelay),
			slog.Bool("retries_exhausted", outcome.Retry.RetriesExhausted),
			slog.String(labelErrorKind, string(outcome.Kind)),
		)
	}
}

func describeOutcome(operation string, err error) string {
	if err != nil {
		return Describe(err)
	}

	if operation == OperationReturn {
		return "Book returned successfully."
	}

	return "Book borrowed successfully."
}
