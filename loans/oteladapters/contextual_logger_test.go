package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/library-loans-go/loans/oteladapters"
)

// emittedRecord is what recordingLogger keeps of a log.Record, which must not be retained after Emit.
type emittedRecord struct {
	severity log.Severity
	body     string
	attrs    map[string]log.Value
}

// recordingLogger keeps emitted records, the noop logger supplies the rest of log.Logger.
type recordingLogger struct {
	noop.Logger

	mu      sync.Mutex
	records []emittedRecord
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, emittedRecord{
		severity: record.Severity(),
		body:     record.Body().AsString(),
		attrs:    attrs,
	})
}

func Test_SlogBridgeLoggerWithHandler_LogsAllLevels(t *testing.T) {
	// setup
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug message", "user_id", int64(1))
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG","msg":"debug message","user_id":1`)
	assert.Contains(t, output, `"level":"INFO","msg":"info message"`)
	assert.Contains(t, output, `"level":"WARN","msg":"warn message"`)
	assert.Contains(t, output, `"level":"ERROR","msg":"error message"`)
}

func Test_SlogBridgeLogger_DoesNotPanic_WithAndWithoutASpan(t *testing.T) {
	// setup
	provider := trace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	logger := oteladapters.NewSlogBridgeLogger("library-loans-test")
	ctx, span := provider.Tracer("test").Start(context.Background(), "loans.borrow")
	defer span.End()

	// act & assert
	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "without span")
		logger.InfoContext(ctx, "with span", "operation_id", "abc")
	})
}

func Test_OTelLogger_EmitsRecordsWithSeverityAndTypedAttributes(t *testing.T) {
	// setup
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.InfoContext(context.Background(), "loans operation: borrow completed",
		"title", "Dune",
		"user_id", int64(7),
		"duration_ms", 1.5,
		"dangling",
	)
	logger.ErrorContext(context.Background(), "loans operation: return failed", "error", "boom")

	// assert
	require.Len(t, recorder.records, 2)

	info := recorder.records[0]
	assert.Equal(t, log.SeverityInfo, info.severity)
	assert.Equal(t, "loans operation: borrow completed", info.body)

	attrs := info.attrs
	assert.Len(t, attrs, 3, "the dangling key must be dropped")
	assert.Equal(t, "Dune", attrs["title"].AsString())
	assert.Equal(t, int64(7), attrs["user_id"].AsInt64())
	assert.InDelta(t, 1.5, attrs["duration_ms"].AsFloat64(), 0.0001)

	failure := recorder.records[1]
	assert.Equal(t, log.SeverityError, failure.severity)
	assert.Equal(t, "boom", failure.attrs["error"].AsString())
}
