// Package server implements the MCP (Model Context Protocol) server for photo
// forensics tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the forensics
// pipeline through the MCP protocol, so MCP-compatible clients can inspect
// photos for embedded identifying data and produce metadata-free copies.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get file facts
//   - image_dimensions: Get width and height
//
// Pixel Statistics:
//   - image_histogram: Luminance histogram of a downsampled copy
//   - image_palette: Most frequent exact colors
//   - image_overlay: Difference or error-level overlay as base64 PNG
//
// File Forensics:
//   - image_hash: Digest of the original bytes
//   - image_metadata: EXIF camera, capture and GPS tags
//   - image_strip: Metadata-free JPEG copy
//   - image_scan_phone: Phone-number-like text in the file header
//
// Full Analysis and Workspace:
//   - image_analyze: Run everything and add the report to the workspace
//   - workspace_list, workspace_select, workspace_current: Browse reports
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded sources. Sources are cached
// by path and reused across tool calls, so hashing, metadata and pixel tools
// all see the same original bytes. The cache persists for the lifetime of the
// server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.NewWithConfig(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Error("server stopped", "error", err)
//	}
package server
