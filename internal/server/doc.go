// Package server implements the MCP (Model Context Protocol) server for EXIF
// extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the extract_exif
// tool, a supported-formats resource and a photo analysis prompt to
// MCP-compatible clients.
//
// # Protocol
//
// Two transports share one dispatcher:
//   - stdio: one JSON-RPC message per line on stdin, responses on stdout
//   - Streamable HTTP: POST /mcp with a JSON-RPC body, sessions tracked by
//     the Mcp-Session-Id header
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - notifications/initialized: Client acknowledgment (no response)
//   - ping: Health check
//   - tools/list, tools/call: Enumerate and run tools
//   - resources/list, resources/read: Enumerate and read resources
//   - prompts/list, prompts/get: Enumerate and render prompts
//
// # Session Configuration
//
// Every call runs with a config.Session: fetch timeout, size limit and the
// two field-group flags. The stdio transport uses the process defaults. Over
// HTTP, initialize builds the session from query parameters and the session
// is fixed until DELETE /mcp, until it sits idle past the idle timeout, or
// until the table is full and it is the least recently used.
//
// A message may be at most the base64 size of the session's max_file_size
// plus 1 MiB. A longer stdio line is skipped and answered with an error:
// a tools/call whose id precedes the payload gets a payload_too_large tool
// result, anything else a -32600 error (id null when it cannot be read).
//
// # Error Handling
//
// Protocol problems are JSON-RPC errors:
//   - -32700: body is not valid JSON
//   - -32600: not a JSON-RPC 2.0 request, or larger than the message limit
//   - -32601: unknown method
//   - -32602: unknown tool, resource or prompt, or bad arguments
//   - -32000: unexpected server failure
//
// Extraction failures (bad input, fetch errors, oversized or unsupported
// images) are ordinary tool results with "isError": true, so the model sees
// the error kind and message.
//
// # Usage
//
//	srv := server.New(server.Options{Defaults: cfg.Defaults, Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
