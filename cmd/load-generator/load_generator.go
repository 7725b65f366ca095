// Package main implements a load generator that runs concurrent Borrow and Return commands
// against one library backend and reports how they ended, per error kind.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/shell"
)

const (
	scenarioBorrow = "borrow"
	scenarioReturn = "return"

	operationTimeout = 5 * time.Second
	statsInterval    = 10 * time.Second
	loadTestAuthor   = "Load Test Author"
)

var errShutdownTimeout = errors.New("shutdown timeout exceeded")

// Stats is a snapshot of the outcomes since Start or RunBatch.
type Stats struct {
	Requests int64
	Attempts int64
	Outcomes map[loans.Kind]int64
	Duration time.Duration
}

// LoadGenerator drives Borrow and Return against a small catalog seeded for this run,
// so many commands contend for the same books and users.
type LoadGenerator struct {
	library *shell.Library
	config  Config
	logger  *slog.Logger
	runID   uuid.UUID

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu        sync.RWMutex
	startTime time.Time
	requests  int64
	attempts  int64
	outcomes  map[loans.Kind]int64
}

// NewLoadGenerator creates a LoadGenerator running commands through the library.
func NewLoadGenerator(library *shell.Library, config Config, logger *slog.Logger) *LoadGenerator {
	return &LoadGenerator{
		library:  library,
		config:   config,
		logger:   logger,
		runID:    uuid.New(),
		stopChan: make(chan struct{}),
		outcomes: make(map[loans.Kind]int64),
	}
}

// Seed registers the users and adds the books of this run.
// Book titles carry the run id, so repeated runs do not share copies.
func (lg *LoadGenerator) Seed(ctx context.Context) error {
	for i := 1; i <= lg.config.Users; i++ {
		_, err := lg.library.RegisterUser(ctx, loans.NewUser{
			ID:          int64(i),
			Name:        fmt.Sprintf("Load Test Reader %d", i),
			BorrowLimit: int64(lg.config.BorrowLimit),
		})
		if err != nil {
			return fmt.Errorf("registering user %d: %w", i, err)
		}
	}

	for i := 1; i <= lg.config.Books; i++ {
		_, err := lg.library.AddOrIncreaseBook(ctx, loans.NewBook{
			Title:    lg.bookTitle(i),
			Author:   loadTestAuthor,
			Quantity: int64(lg.config.Copies),
		})
		if err != nil {
			return fmt.Errorf("adding book %d: %w", i, err)
		}
	}

	lg.logger.Info("load generator seeded",
		"run_id", lg.runID.String(),
		"users", lg.config.Users,
		"books", lg.config.Books,
		"copies", lg.config.Copies,
	)

	return nil
}

// Start runs scenarios at the configured rate until ctx is done or Stop is called.
func (lg *LoadGenerator) Start(ctx context.Context) error {
	lg.reset()

	interval := time.Second / time.Duration(lg.config.Rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lg.logger.Info("load generator starting",
		"run_id", lg.runID.String(),
		"rate", lg.config.Rate,
		"interval", interval,
		"goroutines", runtime.NumGoroutine(),
	)

	lg.wg.Add(1)
	go lg.statsReporter(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-lg.stopChan:
			return nil

		case <-ticker.C:
			lg.wg.Add(1)
			go func() {
				defer lg.wg.Done()
				lg.executeScenario(ctx)
			}()
		}
	}
}

// Stop waits for running scenarios and logs the final stats.
func (lg *LoadGenerator) Stop(ctx context.Context) error {
	close(lg.stopChan)

	done := make(chan struct{})
	go func() {
		lg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lg.logStats("load generator stopped")
		return nil
	case <-ctx.Done():
		lg.logStats("load generator stopped")
		return errShutdownTimeout
	}
}

// RunBatch starts n scenarios at once and waits for all of them.
func (lg *LoadGenerator) RunBatch(ctx context.Context, n int) Stats {
	lg.reset()

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lg.executeScenario(ctx)
		}()
	}

	wg.Wait()

	return lg.Stats()
}

// Stats returns a copy of the current counters.
func (lg *LoadGenerator) Stats() Stats {
	lg.mu.RLock()
	defer lg.mu.RUnlock()

	return Stats{
		Requests: lg.requests,
		Attempts: lg.attempts,
		Outcomes: maps.Clone(lg.outcomes),
		Duration: time.Since(lg.startTime),
	}
}

func (lg *LoadGenerator) reset() {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	lg.startTime = time.Now()
	lg.requests = 0
	lg.attempts = 0
	lg.outcomes = make(map[loans.Kind]int64)
}

func (lg *LoadGenerator) executeScenario(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	command := shell.LoanCommand{
		UserID: rand.Int64N(int64(lg.config.Users)) + 1,      //nolint:gosec // load test, weak random is fine
		Title:  lg.bookTitle(rand.IntN(lg.config.Books) + 1), //nolint:gosec // load test, weak random is fine
		Author: loadTestAuthor,
	}

	var outcome shell.Outcome
	var err error

	switch lg.selectScenario() {
	case scenarioBorrow:
		outcome, err = lg.library.Borrow(opCtx, command)
	default:
		outcome, err = lg.library.Return(opCtx, command)
	}

	lg.mu.Lock()
	lg.requests++
	lg.attempts += int64(outcome.Retry.Attempts)
	lg.outcomes[outcome.Kind]++
	lg.mu.Unlock()

	if err != nil && !loans.IsExpected(err) {
		lg.logger.Warn("scenario failed",
			"operation", outcome.Operation,
			"kind", string(outcome.Kind),
			"error", err.Error(),
		)
	}
}

// selectScenario applies the weights [borrow, return] to a number in 0..99.
func (lg *LoadGenerator) selectScenario() string {
	if rand.IntN(100) < lg.config.ScenarioWeights[0] { //nolint:gosec // load test, weak random is fine
		return scenarioBorrow
	}

	return scenarioReturn
}

func (lg *LoadGenerator) bookTitle(n int) string {
	return fmt.Sprintf("Load Test Book %d (%s)", n, lg.runID.String()[:8])
}

func (lg *LoadGenerator) statsReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.logStats("load generator stats")
		}
	}
}

func (lg *LoadGenerator) logStats(msg string) {
	stats := lg.Stats()
	if stats.Duration <= 0 || stats.Requests == 0 {
		return
	}

	args := []any{
		"run_id", lg.runID.String(),
		"requests", stats.Requests,
		"duration", stats.Duration.Truncate(time.Second),
		"requests_per_second", float64(stats.Requests) / stats.Duration.Seconds(),
		"attempts_per_request", float64(stats.Attempts) / float64(stats.Requests),
		"goroutines", runtime.NumGoroutine(),
	}

	for kind, count := range stats.Outcomes {
		args = append(args, "outcome_"+string(kind), count)
	}

	lg.logger.Info(msg, args...)
}
