package helper

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// LogHandlerSpy is a slog.Handler that captures log records for testing.
type LogHandlerSpy struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
// Switchable to log to stdout, which helps when debugging a failing test.
func NewLogHandlerSpy(logToStdout bool) *LogHandlerSpy {
	return &LogHandlerSpy{
		records:     make([]slog.Record, 0),
		logToStdout: logToStdout,
	}
}

// Handle implements slog.Handler interface.
func (h *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record.Clone())

	if h.logToStdout {
		_ = slog.NewJSONHandler(os.Stdout, nil).Handle(ctx, record)
	}

	return nil
}

// Enabled implements slog.Handler interface.
func (h *LogHandlerSpy) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler interface.
func (h *LogHandlerSpy) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

// WithGroup implements slog.Handler interface.
func (h *LogHandlerSpy) WithGroup(_ string) slog.Handler {
	return h
}

// RecordCount returns the number of captured log records.
func (h *LogHandlerSpy) RecordCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.records)
}

// Records returns a copy of all captured log records.
func (h *LogHandlerSpy) Records() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := make([]slog.Record, len(h.records))
	copy(records, h.records)

	return records
}

// Reset clears all captured log records.
func (h *LogHandlerSpy) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = h.records[:0]
}

// CountAtLevel returns how many records were logged at the level.
func (h *LogHandlerSpy) CountAtLevel(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, record := range h.records {
		if record.Level == level {
			count++
		}
	}

	return count
}

// LogRecordMatcher provides a fluent interface for checking log record attributes.
type LogRecordMatcher struct {
	record *slog.Record
	found  bool
}

// HasLog starts a fluent chain for the first record with the level and message.
func (h *LogHandlerSpy) HasLog(level slog.Level, message string) *LogRecordMatcher {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.records {
		if h.records[i].Level == level && h.records[i].Message == message {
			record := h.records[i]
			return &LogRecordMatcher{record: &record, found: true}
		}
	}

	return &LogRecordMatcher{found: false}
}

// HasDebugLog starts a fluent chain for a debug-level record.
func (h *LogHandlerSpy) HasDebugLog(message string) *LogRecordMatcher {
	return h.HasLog(slog.LevelDebug, message)
}

// HasInfoLog starts a fluent chain for an info-level record.
func (h *LogHandlerSpy) HasInfoLog(message string) *LogRecordMatcher {
	return h.HasLog(slog.LevelInfo, message)
}

// HasErrorLog starts a fluent chain for an error-level record.
func (h *LogHandlerSpy) HasErrorLog(message string) *LogRecordMatcher {
	return h.HasLog(slog.LevelError, message)
}

// WithAttr checks that the record has the attribute key.
func (m *LogRecordMatcher) WithAttr(key string) *LogRecordMatcher {
	if !m.found {
		return m
	}

	has := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			has = true
			return false
		}

		return true
	})

	m.found = has

	return m
}

// WithAttrValue checks that the record has the attribute key with the string form of value.
func (m *LogRecordMatcher) WithAttrValue(key, value string) *LogRecordMatcher {
	if !m.found {
		return m
	}

	has := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key && attr.Value.String() == value {
			has = true
			return false
		}

		return true
	})

	m.found = has

	return m
}

// WithDurationMS checks that the record has a non-negative duration_ms attribute.
func (m *LogRecordMatcher) WithDurationMS() *LogRecordMatcher {
	if !m.found {
		return m
	}

	has := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key != "duration_ms" {
			return true
		}

		switch attr.Value.Kind() {
		case slog.KindFloat64:
			has = attr.Value.Float64() >= 0
		case slog.KindInt64:
			has = attr.Value.Int64() >= 0
		default:
		}

		return false
	})

	m.found = has

	return m
}

// Assert returns true if all conditions in the fluent chain were met.
func (m *LogRecordMatcher) Assert() bool {
	return m.found
}
