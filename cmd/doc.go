// Package cmd implements the command-line interface for inboxreply.
//
// This package provides the following commands:
//   - serve: Start the MCP server to provide mailbox tools for AI assistants
//   - unread: Print the unread emails of the configured mailbox
//   - classify: Tell automated senders from personal ones
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
