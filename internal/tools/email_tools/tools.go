package email_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxreply/internal/instrumentation"
	"github.com/teemow/inboxreply/internal/mailbox"
	"github.com/teemow/inboxreply/internal/server"
	"github.com/teemow/inboxreply/internal/tools/common"
	"github.com/teemow/inboxreply/internal/tools/params"
)

// Tool names.
const (
	ToolGetUnreadEmails  = "get_unread_emails"
	ToolCreateDraftReply = "create_draft_reply"
	ToolSendReply        = "send_reply"
	ToolSendEmail        = "send_email"
	ToolClassifySenders  = "classify_senders"
)

func folderOption() mcp.ToolOption {
	return mcp.WithString("folder",
		mcp.Description("Mailbox folder or Gmail label to read from (default: INBOX)"),
	)
}

// RegisterEmailTools adds the mailbox tools to s. Send tools are skipped in
// read-only mode.
func RegisterEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getUnread := mcp.NewTool(ToolGetUnreadEmails,
		mcp.WithDescription("Fetch unread emails from the inbox. Returns sender, subject, date, body, message ID, and thread ID for each email."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of emails to fetch (default: 10)"),
			mcp.DefaultNumber(mailbox.DefaultLimit),
			mcp.Min(1),
			mcp.Max(mailbox.MaxLimit),
		),
		folderOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(getUnread, common.InstrumentedToolHandler(ToolGetUnreadEmails, instrumentation.OperationList, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetUnreadEmails(ctx, req, sc)
		}))

	createDraft := mcp.NewTool(ToolCreateDraftReply,
		mcp.WithDescription("Create a draft reply to an email thread. The draft will appear in the original email thread."),
		mcp.WithString("thread_id",
			mcp.Required(),
			mcp.Description("The thread ID from get_unread_emails to reply to"),
		),
		mcp.WithString("reply_body",
			mcp.Required(),
			mcp.Description("The body text of your reply"),
		),
		folderOption(),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(createDraft, common.InstrumentedToolHandler(ToolCreateDraftReply, instrumentation.OperationDraft, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateDraftReply(ctx, req, sc)
		}))

	classify := mcp.NewTool(ToolClassifySenders,
		mcp.WithDescription("Classify the senders of unread emails as automated (newsletters, notifications, no-reply) or personal."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of unread emails to inspect (default: 10)"),
		),
		folderOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(classify, common.InstrumentedToolHandler(ToolClassifySenders, instrumentation.OperationList, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClassifySenders(ctx, req, sc)
		}))

	if sc.ReadOnly() {
		return nil
	}

	sendReply := mcp.NewTool(ToolSendReply,
		mcp.WithDescription("Send a reply to an email thread immediately. The reply is threaded like a draft reply."),
		mcp.WithString("thread_id",
			mcp.Required(),
			mcp.Description("The thread ID from get_unread_emails to reply to"),
		),
		mcp.WithString("reply_body",
			mcp.Required(),
			mcp.Description("The body text of your reply"),
		),
		mcp.WithBoolean("reply_all",
			mcp.Description("Also send to everyone on the last message's To and Cc (default: false)"),
		),
		folderOption(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(sendReply, common.InstrumentedToolHandler(ToolSendReply, instrumentation.OperationSend, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendReply(ctx, req, sc)
		}))

	sendEmail := mcp.NewTool(ToolSendEmail,
		mcp.WithDescription("Send a new email."),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text email body"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(sendEmail, common.InstrumentedToolHandler(ToolSendEmail, instrumentation.OperationSend, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, req, sc)
		}))

	return nil
}

func handleGetUnreadEmails(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	limit, err := params.Int(args, "limit", mailbox.DefaultLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	svc, err := sc.Mailbox()
	if err != nil {
		return common.ErrorResult("fetch unread emails", err), nil
	}
	emails, err := svc.FetchUnread(ctx, params.String(args, "folder", ""), limit)
	if err != nil {
		return common.ErrorResult("fetch unread emails", err), nil
	}
	return mcp.NewToolResultText(FormatEmails(emails)), nil
}

func handleCreateDraftReply(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	threadID, err := params.RequiredString(args, "thread_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := params.RequiredString(args, "reply_body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	svc, err := sc.Mailbox()
	if err != nil {
		return common.ErrorResult("create draft reply", err), nil
	}
	draft, err := svc.CreateDraftReply(ctx, params.String(args, "folder", ""), threadID, body)
	if err != nil {
		return common.ErrorResult("create draft reply", err), nil
	}
	return mcp.NewToolResultText(FormatDraft(svc.BackendName(), draft)), nil
}

func handleSendReply(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	threadID, err := params.RequiredString(args, "thread_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := params.RequiredString(args, "reply_body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	svc, err := sc.Mailbox()
	if err != nil {
		return common.ErrorResult("send reply", err), nil
	}
	sent, err := svc.SendReply(ctx, params.String(args, "folder", ""), threadID, body, params.Bool(args, "reply_all", false))
	if err != nil {
		return common.ErrorResult("send reply", err), nil
	}
	return mcp.NewToolResultText(FormatSent(sent)), nil
}

func handleSendEmail(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	to, err := params.RequiredStringList(args, "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	subject, err := params.RequiredString(args, "subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := params.RequiredString(args, "body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cc, err := params.StringList(args, "cc")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bcc, err := params.StringList(args, "bcc")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	svc, err := sc.Mailbox()
	if err != nil {
		return common.ErrorResult("send email", err), nil
	}
	msg := mailbox.Outgoing{To: to, Cc: cc, Bcc: bcc, Subject: subject, Body: body}
	sent, err := svc.Send(ctx, msg)
	if err != nil {
		return common.ErrorResult("send email", err), nil
	}
	return mcp.NewToolResultText(FormatSent(sent)), nil
}

func handleClassifySenders(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	limit, err := params.Int(args, "limit", mailbox.DefaultLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	svc, err := sc.Mailbox()
	if err != nil {
		return common.ErrorResult("classify senders", err), nil
	}
	results, err := svc.ClassifyUnread(ctx, params.String(args, "folder", ""), limit)
	if err != nil {
		return common.ErrorResult("classify senders", err), nil
	}
	return mcp.NewToolResultText(FormatClassifications(results)), nil
}
