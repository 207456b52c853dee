// Package email_tools registers the mailbox tools with the MCP server.
//
// Reading unread mail, drafting replies and classifying senders are always
// available. Tools that deliver mail are registered only when the server
// runs with read-only mode off.
package email_tools
