// Package server implements the MCP (Model Context Protocol) server for sketch
// layout tools.
//
// This package provides a JSON-RPC 2.0 server that exposes one sketch session
// through the MCP protocol: shapes are drawn and edited with tool calls, an
// image can be traced over and have its rectangles detected, and the result
// is exported as a widget layout.
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
// Sketch Editing:
//   - sketch_new: Start an empty sketch, optionally changing the grid
//   - sketch_add_rect, sketch_add_path, sketch_add_text: Add shapes
//   - sketch_rename, sketch_move, sketch_delete: Edit a shape by ID
//   - sketch_clear: Remove every shape
//   - sketch_list: Grid, shapes and reference image
//   - sketch_load_document: Replace the sketch with a JSON or YAML document
//
// Reference Image:
//   - sketch_set_reference: Trace over an image file
//   - sketch_auto_detect: Add the rectangles found in the reference
//   - sketch_ocr_labels: Add the words found in the reference
//   - sketch_preview: PNG of the canvas with grid and shape outlines
//
// Export:
//   - sketch_export: json, ascii, tk-grid, tk-place or tk-hybrid
//
// Stateless Detection:
//   - image_detect_rectangles: Find rectangles in an image file
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A line that is not valid JSON is answered with a -32700 parse error and a
// null ID.
//
// # Usage
//
// The server is typically started by an MCP client through the serve
// command:
//
//	srv := server.New(server.WithDetector(client))
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    return err
//	}
package server
