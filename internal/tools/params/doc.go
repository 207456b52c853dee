// Package params reads typed values out of MCP tool call arguments.
//
// JSON numbers arrive as float64 and lists may arrive either as arrays or as
// comma-separated strings; the helpers here accept both shapes.
package params
