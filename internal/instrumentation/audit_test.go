package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolInvocationComplete(t *testing.T) {
	ti := NewToolInvocation("send_email").WithBackend(BackendGmail, OperationSend)
	ti.Complete(nil)
	assert.True(t, ti.Success)
	assert.Equal(t, StatusSuccess, ti.Status())
	assert.GreaterOrEqual(t, ti.Duration.Nanoseconds(), int64(0))

	failed := NewToolInvocation("send_email").Complete(errors.New("relay denied"))
	assert.False(t, failed.Success)
	assert.Equal(t, StatusError, failed.Status())
	assert.Equal(t, "relay denied", failed.Error)
}

func auditLine(t *testing.T, cfg AuditLoggingConfig, ti *ToolInvocation) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	NewAuditLoggerWithConfig(logger, cfg).LogToolInvocation(context.Background(), ti)
	if buf.Len() == 0 {
		return nil
	}
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestAuditLoggerPII(t *testing.T) {
	ti := NewToolInvocation("get_unread_emails").
		WithMailbox("jane@example.com").
		WithFolder("INBOX").
		WithReadOnly(true).
		Complete(nil)

	anon := auditLine(t, AuditLoggingConfig{Enabled: true}, ti)
	require.NotNil(t, anon)
	assert.Equal(t, "tool_executed", anon["msg"])
	assert.Equal(t, "example.com", anon["mailbox_domain"])
	assert.NotContains(t, anon, "mailbox")
	assert.Equal(t, "audit", anon["component"])

	full := auditLine(t, AuditLoggingConfig{Enabled: true, IncludePII: true}, ti)
	require.NotNil(t, full)
	assert.Equal(t, "jane@example.com", full["mailbox"])
	assert.NotContains(t, full, "mailbox_domain")
}

func TestAuditLoggerFailureAndDisabled(t *testing.T) {
	ti := NewToolInvocation("send_reply").Complete(errors.New("boom"))

	line := auditLine(t, AuditLoggingConfig{Enabled: true}, ti)
	require.NotNil(t, line)
	assert.Equal(t, "tool_failed", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "boom", line["error"])

	assert.Nil(t, auditLine(t, AuditLoggingConfig{Enabled: false}, ti))

	var nilLogger *AuditLogger
	assert.NotPanics(t, func() { nilLogger.LogToolInvocation(context.Background(), ti) })
}
