package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans emitted by this module.
const TracerName = "github.com/teemow/inboxreply"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrReadOnly  = "mcp.read_only"
	SpanAttrBackend   = "mail.backend"
	SpanAttrOperation = "mail.operation"
	SpanAttrFolder    = "mail.folder"
	SpanAttrThreadID  = "mail.thread_id"
	SpanAttrMessageID = "mail.message_id"
	SpanAttrCount     = "mail.count"
	SpanAttrTransport = "mail.transport"
)

// SpanAttributeBuilder collects span attributes, skipping empty values.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{attrs: make([]attribute.KeyValue, 0, 8)}
}

func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	return b.str(SpanAttrTool, tool)
}

func (b *SpanAttributeBuilder) WithBackend(backend string) *SpanAttributeBuilder {
	return b.str(SpanAttrBackend, backend)
}

func (b *SpanAttributeBuilder) WithFolder(folder string) *SpanAttributeBuilder {
	return b.str(SpanAttrFolder, folder)
}

func (b *SpanAttributeBuilder) WithThread(threadID string) *SpanAttributeBuilder {
	return b.str(SpanAttrThreadID, threadID)
}

func (b *SpanAttributeBuilder) WithMessage(messageID string) *SpanAttributeBuilder {
	return b.str(SpanAttrMessageID, messageID)
}

func (b *SpanAttributeBuilder) WithCount(n int) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Int(SpanAttrCount, n))
	return b
}

func (b *SpanAttributeBuilder) WithReadOnly(readOnly bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrReadOnly, readOnly))
	return b
}

func (b *SpanAttributeBuilder) str(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts an internal span on the global tracer provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a server span named "tool.<toolName>".
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartBackendSpan starts a client span named "mail.<backend>.<operation>".
func StartBackendSpan(ctx context.Context, backend, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(SpanAttrBackend, backend),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "mail."+backend+"."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// GetTraceID returns the trace id of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the span id of the span in ctx, or "".
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
