package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// ToolInvocation is one audited MCP tool call.
//
// Mailbox is the address the server acts on behalf of. It is PII and only
// appears in log output when the AuditLogger includes PII.
type ToolInvocation struct {
	Tool      string
	Mailbox   string
	Backend   string
	Operation string
	Folder    string
	ReadOnly  bool

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a call to tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

func (ti *ToolInvocation) WithMailbox(address string) *ToolInvocation {
	ti.Mailbox = address
	return ti
}

func (ti *ToolInvocation) WithBackend(backend, operation string) *ToolInvocation {
	ti.Backend = backend
	ti.Operation = operation
	return ti
}

func (ti *ToolInvocation) WithFolder(folder string) *ToolInvocation {
	ti.Folder = folder
	return ti
}

func (ti *ToolInvocation) WithReadOnly(readOnly bool) *ToolInvocation {
	ti.ReadOnly = readOnly
	return ti
}

// WithSpanContext copies trace and span ids from ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stops the timer and records the outcome.
func (ti *ToolInvocation) Complete(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status is the metric label for the outcome.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// MailboxDomain is the low-cardinality form of Mailbox.
func (ti *ToolInvocation) MailboxDomain() string {
	return ExtractUserDomain(ti.Mailbox)
}

// LogAttrs returns the attributes for an audit line. With includePII the
// full mailbox address is logged, otherwise only its domain.
func (ti *ToolInvocation) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
		slog.Bool("read_only", ti.ReadOnly),
	}
	if ti.Mailbox != "" {
		if includePII {
			attrs = append(attrs, slog.String("mailbox", ti.Mailbox))
		} else {
			attrs = append(attrs, slog.String("mailbox_domain", ti.MailboxDomain()))
		}
	}
	optional := []struct{ key, value string }{
		{"backend", ti.Backend},
		{"operation", ti.Operation},
		{"folder", ti.Folder},
		{"trace_id", ti.TraceID},
		{"span_id", ti.SpanID},
		{"error", ti.Error},
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}
	return attrs
}

// AuditLogger writes one structured line per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger returns an enabled logger that omits PII.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig returns a logger configured by config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs ti at info on success and warn on failure.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}
	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, ti.LogAttrs(al.includePII)...)
}
