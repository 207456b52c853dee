// Package logging holds the slog conventions used across inboxreply.
//
// Handlers always write to stderr (or a caller supplied writer): stdout is
// reserved for the MCP stdio transport.
//
//	logger := logging.New("info", "json", os.Stderr)
//	logger = logging.WithBackend(logger, "imap")
//	logger.Info("fetched unread", logging.Folder("INBOX"), slog.Int("count", n))
//
// Addresses are logged through SenderHash or Domain. Secrets go through
// SanitizeSecret.
package logging
