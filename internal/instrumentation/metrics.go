package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	labelMethod    = "method"
	labelPath      = "path"
	labelStatus    = "status"
	labelTool      = "tool"
	labelBackend   = "backend"
	labelOperation = "operation"
	labelFolder    = "folder"
	labelTransport = "transport"
	labelFlagged   = "flagged"
	labelDomain    = "sender_domain"
)

var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics records server metrics. The zero value is usable and records
// nothing, which is what a disabled Provider hands out.
type Metrics struct {
	httpRequests        metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	toolInvocations metric.Int64Counter
	toolDuration    metric.Float64Histogram

	backendOperations metric.Int64Counter
	backendDuration   metric.Float64Histogram

	outboundMessages metric.Int64Counter
	classified       metric.Int64Counter

	detailedLabels bool
}

// NewMetrics registers every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}
	var err error

	if m.httpRequests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}
	if m.httpRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, fmt.Errorf("create http_request_duration_seconds: %w", err)
	}

	if m.toolInvocations, err = meter.Int64Counter("mcp_tool_invocations_total",
		metric.WithDescription("MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("create mcp_tool_invocations_total: %w", err)
	}
	if m.toolDuration, err = meter.Float64Histogram("mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create mcp_tool_duration_seconds: %w", err)
	}

	if m.backendOperations, err = meter.Int64Counter("mail_backend_operations_total",
		metric.WithDescription("Mailbox backend operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("create mail_backend_operations_total: %w", err)
	}
	if m.backendDuration, err = meter.Float64Histogram("mail_backend_operation_duration_seconds",
		metric.WithDescription("Mailbox backend operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create mail_backend_operation_duration_seconds: %w", err)
	}

	if m.outboundMessages, err = meter.Int64Counter("mail_outbound_messages_total",
		metric.WithDescription("Messages handed to an outbound transport"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, fmt.Errorf("create mail_outbound_messages_total: %w", err)
	}
	if m.classified, err = meter.Int64Counter("mail_messages_classified_total",
		metric.WithDescription("Senders run through the automated-sender classifier"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, fmt.Errorf("create mail_messages_classified_total: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(labelMethod, method),
		attribute.String(labelPath, path),
		attribute.String(labelStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequests.Add(ctx, 1, opt)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordToolInvocation records one MCP tool call.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string, duration time.Duration) {
	if m == nil || m.toolInvocations == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(labelTool, tool),
		attribute.String(labelStatus, status),
	)
	m.toolInvocations.Add(ctx, 1, opt)
	m.toolDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordBackendOperation records one call into a mailbox backend.
func (m *Metrics) RecordBackendOperation(ctx context.Context, backend, operation, status string, duration time.Duration) {
	m.RecordBackendOperationInFolder(ctx, backend, operation, "", status, duration)
}

// RecordBackendOperationInFolder is RecordBackendOperation with a folder
// label, folded by FolderLabel.
func (m *Metrics) RecordBackendOperationInFolder(ctx context.Context, backend, operation, folder, status string, duration time.Duration) {
	if m == nil || m.backendOperations == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String(labelBackend, backend),
		attribute.String(labelOperation, operation),
		attribute.String(labelFolder, FolderLabel(folder)),
		attribute.String(labelStatus, status),
	)
	m.backendOperations.Add(ctx, 1, opt)
	m.backendDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordOutboundMessage records a message passed to transport.
func (m *Metrics) RecordOutboundMessage(ctx context.Context, transport, status string) {
	if m == nil || m.outboundMessages == nil {
		return
	}
	m.outboundMessages.Add(ctx, 1, metric.WithAttributes(
		attribute.String(labelTransport, transport),
		attribute.String(labelStatus, status),
	))
}

// RecordClassification records one classified sender. The sender domain is
// only attached when detailed labels are enabled.
func (m *Metrics) RecordClassification(ctx context.Context, sender string, flagged bool) {
	if m == nil || m.classified == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.Bool(labelFlagged, flagged)}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(labelDomain, ExtractUserDomain(sender)))
	}
	m.classified.Add(ctx, 1, metric.WithAttributes(attrs...))
}
