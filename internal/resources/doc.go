// Package resources provides MCP resources describing the served mailbox.
// Resources are read-only data sources that MCP clients can fetch without
// calling a tool, such as which backend is configured and which sender
// patterns the classifier flags.
package resources
