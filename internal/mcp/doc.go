// Package mcp provides a Model Context Protocol (MCP) server for reval using mcp-go.
//
// The server lets AI assistants push the files they edit to a running reval
// server, the same way an editor integration would. Each tool maps onto one
// reval command and returns the notifications the command produced.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go).
//
// # Tools
//
//   - reval_reload_file: reload a file; content overrides what is on disk
//   - reval_clear_file: drop the patch for one file
//   - reval_clear_all: drop every patch on the server that owns the file
//   - reval_resolve_config: show which .revalrc applies to a file
//
// A tool whose command ends in a warning (no .revalrc server reachable, no
// file path) returns an error result carrying the warning text.
//
// # Usage
//
// The MCP server is typically started as a subprocess by AI assistants that support
// MCP integration. It can also be started manually for testing:
//
//	reval mcp
//
// The server will read JSON-RPC requests from stdin and write responses to stdout
// until it receives EOF or is terminated.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp
