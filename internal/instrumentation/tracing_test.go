package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestSpanAttributeBuilderSkipsEmpty(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("send_reply").
		WithBackend("").
		WithFolder("INBOX").
		WithThread("").
		WithCount(3).
		WithReadOnly(false).
		Build()

	assert.Equal(t, []attribute.KeyValue{
		attribute.String(SpanAttrTool, "send_reply"),
		attribute.String(SpanAttrFolder, "INBOX"),
		attribute.Int(SpanAttrCount, 3),
		attribute.Bool(SpanAttrReadOnly, false),
	}, attrs)
}

func TestStartBackendSpan(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := StartBackendSpan(context.Background(), BackendIMAP, OperationFetch,
		attribute.String(SpanAttrMessageID, "42"))
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
	EndSpan(span, errors.New("connection reset"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "mail.imap.fetch", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String(SpanAttrBackend, BackendIMAP))
}

func TestStartToolSpan(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartToolSpan(context.Background(), "get_unread_emails")
	EndSpan(span, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "tool.get_unread_emails", ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))
}
