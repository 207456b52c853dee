// Package mailbox defines the contract between the MCP tools and a concrete
// mail store, and orchestrates the read, draft and send flows on top of it.
//
// A Backend talks to one store (the Gmail API, or IMAP plus an outbound
// transport). Service adds validation, bounded concurrent fetching, reply
// header construction, metrics and spans, so backends stay thin.
package mailbox
