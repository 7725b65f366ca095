package shell

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultMaxDelay     = time.Second
	defaultJitterFactor = 0.3

	retryDelayMetric        = "shell_retry_delay_seconds"
	retriesMetric           = "shell_retries_total"
	maxRetriesReachedMetric = "shell_max_retries_reached_total"

	labelOperation      = "operation"
	labelAttemptNumber  = "attempt_number"
	labelErrorKind      = "error_kind"
	labelFinalErrorKind = "final_error_kind"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithRetryMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperation is returned when an empty operation name is provided to WithRetryMetrics.
	ErrEmptyOperation = errors.New("operation must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidMaxDelay is returned when the max delay is not positive.
	ErrInvalidMaxDelay = errors.New("max delay must be positive")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc is an operation that may be resubmitted.
type RetryableFunc func(ctx context.Context) error

// RetryMetrics describes how a retried operation went.
type RetryMetrics struct {
	// Attempts is the number of calls made, 1 when the first call decided the outcome.
	Attempts int

	// TotalDelay is the time spent waiting between attempts, excluding the calls themselves.
	TotalDelay time.Duration

	// LastErrorKind is the kind of the final error, loans.KindNone on success.
	LastErrorKind loans.Kind

	// RetriesExhausted is true when every attempt lost a race.
	RetriesExhausted bool
}

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	maxDelay         time.Duration
	jitterFactor     float64
	metricsCollector loans.MetricsCollector
	operation        string
}

// RetryOption configures RetryWithExponentialBackoff.
type RetryOption func(*retryConfig) error

// RetryWithExponentialBackoff calls fn until it succeeds, fails with an error that is not
// retryable, or maxAttempts calls were made. Only loans.ErrRaceLost is retried, rule
// violations and backend failures are returned after the first call.
//
// Retry schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms plus up to 30% jitter.
// No single wait exceeds the max delay, 1 s by default.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) (RetryMetrics, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		maxDelay:     defaultMaxDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetrics{}, err
		}
	}

	var meta RetryMetrics
	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(config, attempt)
			config.recordDelay(ctx, attempt, delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
				meta.TotalDelay += delay
			case <-ctx.Done():
				timer.Stop()
				meta.LastErrorKind = loans.KindOf(ctx.Err())
				return meta, ctx.Err()
			}
		}

		meta.Attempts++

		lastErr = fn(ctx)
		meta.LastErrorKind = loans.KindOf(lastErr)

		if lastErr == nil || !loans.IsRetryable(lastErr) {
			return meta, lastErr
		}

		if attempt < config.maxAttempts-1 {
			config.recordRetry(ctx, attempt+1, lastErr)
		}
	}

	meta.RetriesExhausted = true
	config.recordExhausted(ctx, lastErr)

	return meta, lastErr
}

// backoffDelay is baseDelay * 2^(attempt-1) plus jitter, capped at maxDelay.
func backoffDelay(config *retryConfig, attempt int) time.Duration {
	delay := config.baseDelay
	for i := 1; i < attempt && delay <= config.maxDelay/2; i++ {
		delay *= 2
	}

	delay = min(delay, config.maxDelay)
	jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec // jitter needs no crypto randomness

	return min(delay+time.Duration(jitter), config.maxDelay)
}

func (c *retryConfig) recordDelay(ctx context.Context, attempt int, delay time.Duration) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation:     c.operation,
		labelAttemptNumber: strconv.Itoa(attempt),
	}

	if contextual, ok := c.metricsCollector.(loans.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, retryDelayMetric, delay, labels)
		return
	}

	c.metricsCollector.RecordDuration(retryDelayMetric, delay, labels)
}

func (c *retryConfig) recordRetry(ctx context.Context, attemptNumber int, err error) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation:     c.operation,
		labelAttemptNumber: strconv.Itoa(attemptNumber),
		labelErrorKind:     string(loans.KindOf(err)),
	}

	if contextual, ok := c.metricsCollector.(loans.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, retriesMetric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(retriesMetric, labels)
}

func (c *retryConfig) recordExhausted(ctx context.Context, err error) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		labelOperation:      c.operation,
		labelFinalErrorKind: string(loans.KindOf(err)),
	}

	if contextual, ok := c.metricsCollector.(loans.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, maxRetriesReachedMetric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(maxRetriesReachedMetric, labels)
}

// WithMaxAttempts sets the maximum number of calls, including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the delay before the second attempt. Later delays double.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithMaxDelay caps every single wait between attempts, jitter included.
func WithMaxDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay <= 0 {
			return ErrInvalidMaxDelay
		}

		config.maxDelay = delay

		return nil
	}
}

// WithJitterFactor adds up to factor * delay of random jitter. Valid range: 0.0 to 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryMetrics reports delays, retries and exhaustion labeled with the operation name.
func WithRetryMetrics(collector loans.MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperation
		}

		config.metricsCollector = collector
		config.operation = operation

		return nil
	}
}
