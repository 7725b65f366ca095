package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/library-loans-go/loans"
)

// Span statuses reported by the loan engine.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusRaceLost = "race_lost"
	StatusError    = "error"

	attrOutcome = "loans.outcome"
)

// TracingCollector implements loans.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on the given tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, loans.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds attrs, maps status to an OpenTelemetry status code and ends the span.
// Spans not started by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx loans.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ loans.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements loans.SpanContext around an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus records the outcome as an attribute and sets the span status code.
// Rule violations and lost races are normal outcomes and leave the code unset,
// only backend failures mark the span as an error.
func (s *OTelSpanContext) SetStatus(status string) {
	s.span.SetAttributes(attribute.String(attrOutcome, status))

	switch status {
	case StatusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case StatusError:
		s.span.SetStatus(codes.Error, "transaction failed")
	default:
	}
}

// AddAttribute sets a string attribute on the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ loans.SpanContext = (*OTelSpanContext)(nil)
