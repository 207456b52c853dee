package common

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/logging"
	"github.com/teemow/inboxreply/internal/server"
	"github.com/teemow/inboxreply/internal/tools/params"
)

// errToolResult marks a handler that returned an error result rather than a
// Go error, so the audit line still records a failure.
var errToolResult = errors.New("tool returned an error result")

// InstrumentedToolHandler wraps handler with a tool span, the tool metrics
// and an audit line. operation is the backend operation the tool maps to.
//
//	s.AddTool(tool, common.InstrumentedToolHandler("get_unread_emails", instrumentation.OperationList, sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		folder := params.String(args, "folder", "")

		attrs := instrumentation.NewSpanAttributeBuilder().
			WithBackend(sc.BackendName()).
			WithFolder(folder).
			WithReadOnly(sc.ReadOnly()).
			Build()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs...)

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithBackend(sc.BackendName(), operation).
			WithFolder(folder).
			WithReadOnly(sc.ReadOnly())
		if svc, err := sc.Mailbox(); err == nil && svc != nil {
			invocation.WithMailbox(svc.SelfAddress())
		}

		result, err := handler(ctx, request)

		outcome := err
		if outcome == nil && result != nil && result.IsError {
			outcome = errToolResult
		}
		invocation.Complete(outcome)
		if outcome != nil {
			logger := logging.WithOperation(logging.WithTool(sc.Logger(), toolName), operation)
			logger.DebugContext(ctx, "tool call failed", slog.Duration("duration", invocation.Duration), logging.Err(outcome))
		}
		instrumentation.EndSpan(span, outcome)

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), invocation.Duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)
		return result, err
	}
}
