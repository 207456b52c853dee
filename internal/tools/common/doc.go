// Package common holds helpers shared by the MCP tool packages: the
// instrumentation wrapper every handler is registered through and the
// mapping from service errors to tool error results.
package common
