package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/library-loans-go/loans/oteladapters"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine"
	"github.com/AntonStoeckl/library-loans-go/shell"
	"github.com/AntonStoeckl/library-loans-go/shell/config"
	"github.com/AntonStoeckl/library-loans-go/shell/logging"
)

const (
	version = "dev"

	defaultRate            = 50
	defaultBooks           = 20
	defaultUsers           = 50
	defaultCopies          = 3
	defaultBorrowLimit     = 5
	defaultScenarioWeights = "60,40" // borrow, return
	instrumentationName    = "library-loans-load-generator"
)

// Config holds the command line flags.
type Config struct {
	ConfigPath           string
	Rate                 int
	Duration             time.Duration
	Books                int
	Users                int
	Copies               int
	BorrowLimit          int
	ScenarioWeights      []int
	ObservabilityEnabled bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "load generator failed:", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	appConfig, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	logger := logging.New(appConfig.Logging, version)
	engineOptions := []sqlengine.Option{sqlengine.WithLogger(logger)}
	libraryOptions := []shell.LibraryOption{
		shell.WithLogger(logger),
		shell.WithRetry(
			shell.WithMaxAttempts(appConfig.Retry.MaxAttempts),
			shell.WithBaseDelay(appConfig.Retry.BaseDelay),
			shell.WithMaxDelay(appConfig.Retry.MaxDelay),
			shell.WithJitterFactor(appConfig.Retry.JitterFactor),
		),
	}

	if cfg.ObservabilityEnabled {
		providers, err := config.NewObservabilityProviders(ctx, appConfig.Observability, version)
		if err != nil {
			return err
		}
		defer func() { _ = providers.Shutdown() }()

		metrics := oteladapters.NewMetricsCollector(otel.Meter(instrumentationName))
		engineOptions = append(engineOptions,
			sqlengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger(instrumentationName)),
			sqlengine.WithMetrics(metrics),
			sqlengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))),
		)
		libraryOptions = append(libraryOptions, shell.WithMetrics(metrics))
	}

	backend, err := config.Connect(ctx, appConfig.Database, engineOptions...)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	library, err := shell.NewLibrary(backend.Engine, backend.Engine, libraryOptions...)
	if err != nil {
		return err
	}

	loadGen := NewLoadGenerator(library, cfg, logger)
	if err := loadGen.Seed(ctx); err != nil {
		return err
	}

	logger.Info("load generator configured",
		slog.String("driver", backend.Driver),
		slog.Int("rate", cfg.Rate),
		slog.Any("scenario_weights", cfg.ScenarioWeights),
		slog.Bool("observability", cfg.ObservabilityEnabled),
	)

	err = loadGen.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if stopErr := loadGen.Stop(shutdownCtx); stopErr != nil {
		logger.Warn("load generator shutdown", "error", stopErr.Error())
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}

	return err
}

func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("load-generator", flag.ContinueOnError)

	var (
		configPath      = fs.String("config", "", "path to the YAML configuration file")
		rate            = fs.Int("rate", defaultRate, "requests per second")
		duration        = fs.Duration("duration", 0, "stop after this long, 0 runs until interrupted")
		books           = fs.Int("books", defaultBooks, "number of books to seed")
		users           = fs.Int("users", defaultUsers, "number of users to register")
		copies          = fs.Int("copies", defaultCopies, "copies per seeded book")
		borrowLimit     = fs.Int("borrow-limit", defaultBorrowLimit, "borrow limit of the seeded users")
		scenarioWeights = fs.String("scenario-weights", defaultScenarioWeights, "comma-separated weights for borrow,return")
		observability   = fs.Bool("observability-enabled", false, "export traces and metrics via OTLP")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	weights, err := parseScenarioWeights(*scenarioWeights)
	if err != nil {
		return Config{}, fmt.Errorf("invalid scenario weights %q: %w", *scenarioWeights, err)
	}

	cfg := Config{
		ConfigPath:           *configPath,
		Rate:                 *rate,
		Duration:             *duration,
		Books:                *books,
		Users:                *users,
		Copies:               *copies,
		BorrowLimit:          *borrowLimit,
		ScenarioWeights:      weights,
		ObservabilityEnabled: *observability,
	}

	if cfg.Rate < 1 || cfg.Books < 1 || cfg.Users < 1 || cfg.Copies < 1 || cfg.BorrowLimit < 0 {
		return Config{}, errors.New("rate, books, users and copies must be positive, borrow-limit must not be negative")
	}

	return cfg, nil
}

func parseScenarioWeights(weightsStr string) ([]int, error) {
	parts := strings.Split(weightsStr, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected 2 weights, got %d", len(parts))
	}

	weights := make([]int, 2)
	total := 0
	for i, part := range parts {
		weight, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", part, err)
		}
		if weight < 0 || weight > 100 {
			return nil, fmt.Errorf("weight %d out of range [0, 100]", weight)
		}
		weights[i] = weight
		total += weight
	}

	if total != 100 {
		return nil, fmt.Errorf("weights must sum to 100, got %d", total)
	}

	return weights, nil
}
