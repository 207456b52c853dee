// Package server holds the runtime state shared by MCP tool handlers and the
// HTTP surfaces around them.
//
// ServerContext owns the mailbox service, the metrics and the audit logger
// for the lifetime of one serve invocation. HTTPServer exposes the MCP
// server over streamable HTTP or SSE together with the health endpoints.
// MetricsServer serves Prometheus metrics on a separate port so scraping
// never shares a listener with tool traffic.
package server
