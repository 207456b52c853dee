package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxreply/internal/mail"
	"github.com/teemow/inboxreply/internal/mailbox"
	"github.com/teemow/inboxreply/internal/server"
)

// ErrorResult turns err into a tool error result. Validation failures are
// reported verbatim; everything else is prefixed with what was attempted.
func ErrorResult(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, mailbox.ErrThreadIDRequired),
		errors.Is(err, mailbox.ErrBodyRequired),
		errors.Is(err, mailbox.ErrRecipientRequired):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, mail.ErrMissingThreadData):
		return mcp.NewToolResultError("The thread has no messages to reply to.")
	case errors.Is(err, mailbox.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: not found. Check the id returned by get_unread_emails.", action))
	case errors.Is(err, server.ErrShutdown):
		return mcp.NewToolResultError("The server is shutting down.")
	case errors.Is(err, server.ErrNoMailbox):
		return mcp.NewToolResultError("No mailbox is configured.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: request cancelled.", action))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}
