// Package instrumentation wires OpenTelemetry metrics and tracing into the
// inboxreply MCP server.
//
// Metrics are exported through Prometheus (default), OTLP over HTTP, or
// stdout. Tracing is off unless TRACING_EXPORTER selects otlp or stdout.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: HTTP transport
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tool calls by tool and status
//   - mail_backend_operations_total, mail_backend_operation_duration_seconds:
//     mailbox backend calls by backend (gmail, imap), operation and status
//   - mail_outbound_messages_total: messages handed to an outbound transport (smtp, ses)
//   - mail_messages_classified_total: classified senders by flagged
//
// # Tracing
//
// Tool invocations produce "tool.<name>" server spans; backend calls produce
// "mail.<backend>.<operation>" client spans.
//
// # Configuration
//
// DefaultConfig reads INSTRUMENTATION_ENABLED, METRICS_EXPORTER,
// TRACING_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE,
// OTEL_TRACES_SAMPLER_ARG, OTEL_SERVICE_NAME and METRICS_DETAILED_LABELS.
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordBackendOperation(ctx, "imap", instrumentation.OperationList, instrumentation.StatusSuccess, elapsed)
package instrumentation
