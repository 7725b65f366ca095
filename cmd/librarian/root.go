package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/library-loans-go/loans"
	"github.com/AntonStoeckl/library-loans-go/loans/oteladapters"
	"github.com/AntonStoeckl/library-loans-go/loans/sqlengine"
	"github.com/AntonStoeckl/library-loans-go/shell"
	"github.com/AntonStoeckl/library-loans-go/shell/config"
	"github.com/AntonStoeckl/library-loans-go/shell/logging"
)

const instrumentationName = "library-loans"

// errReported marks a failure whose outcome was already printed.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }

func (e errReported) Unwrap() error { return e.err }

// app holds the global flags shared by all commands.
type app struct {
	configPath string
	output     string
	in         io.Reader
}

// session is an opened backend with the Library running on it.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	backend   *config.Backend
	library   *shell.Library
	providers *config.ObservabilityProviders
}

func (s *session) Close() error {
	err := s.backend.Close()
	if s.providers != nil {
		err = errors.Join(err, s.providers.Shutdown())
	}

	return err
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCommand(in)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		var reported errReported
		if !errors.As(err, &reported) {
			_, _ = fmt.Fprintln(errOut, "Error:", describe(err))
		}

		return 1
	}

	return 0
}

func newRootCommand(in io.Reader) *cobra.Command {
	a := &app{in: in}

	root := &cobra.Command{
		Use:           "librarian",
		Short:         "Manage books, users and loans of the library",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			switch a.output {
			case outputText, outputJSON:
				return nil
			default:
				return fmt.Errorf("%w: --output must be %q or %q", loans.ErrInvalidInput, outputText, outputJSON)
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "output format: text or json")

	root.AddCommand(
		newMigrateCommand(a),
		newBookCommand(a),
		newUserCommand(a),
		newBorrowCommand(a),
		newReturnCommand(a),
		newMenuCommand(a),
		newServeCommand(a),
	)

	return root
}

func (a *app) printer(cmd *cobra.Command) printer {
	return printer{w: cmd.OutOrStdout(), format: a.output}
}

// open loads the configuration and connects the Library. With observability the engine and
// the retry loop report to the OpenTelemetry providers created from the configuration.
func (a *app) open(cmd *cobra.Command, observability bool, adjust ...func(*config.Config)) (*session, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}

	for _, f := range adjust {
		f(cfg)
	}

	s := &session{cfg: cfg, logger: newLogger(cfg.Logging, cmd.ErrOrStderr())}
	engineOptions := []sqlengine.Option{sqlengine.WithLogger(s.logger)}
	libraryOptions := []shell.LibraryOption{
		shell.WithLogger(s.logger),
		shell.WithRetry(
			shell.WithMaxAttempts(cfg.Retry.MaxAttempts),
			shell.WithBaseDelay(cfg.Retry.BaseDelay),
			shell.WithMaxDelay(cfg.Retry.MaxDelay),
			shell.WithJitterFactor(cfg.Retry.JitterFactor),
		),
	}

	if observability && cfg.Observability.Enabled {
		s.providers, err = config.NewObservabilityProviders(ctx, cfg.Observability, version)
		if err != nil {
			return nil, err
		}

		metrics := oteladapters.NewMetricsCollector(otel.Meter(instrumentationName))

		engineOptions = append(engineOptions,
			sqlengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger(instrumentationName)),
			sqlengine.WithMetrics(metrics),
			sqlengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))),
		)
		libraryOptions = append(libraryOptions, shell.WithMetrics(metrics))
	}

	s.backend, err = config.Connect(ctx, cfg.Database, engineOptions...)
	if err != nil {
		return nil, errors.Join(err, s.shutdownProviders())
	}

	s.library, err = shell.NewLibrary(s.backend.Engine, s.backend.Engine, libraryOptions...)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}

	return s, nil
}

func (s *session) shutdownProviders() error {
	if s.providers == nil {
		return nil
	}

	return s.providers.Shutdown()
}

func newLogger(cfg config.LoggingConfig, errOut io.Writer) *slog.Logger {
	if strings.EqualFold(cfg.Output, "stderr") {
		return logging.NewWithWriter(cfg, version, errOut)
	}

	return logging.New(cfg, version)
}

// describe prefers the library message for errors from the loans packages and falls back
// to the error text for everything else, e.g. configuration problems.
func describe(err error) string {
	if loans.KindOf(err) == loans.KindOther {
		return err.Error()
	}

	return shell.Describe(err)
}

func closeSession(s *session, err *error) {
	if closeErr := s.Close(); closeErr != nil && *err == nil {
		*err = closeErr
	}
}
