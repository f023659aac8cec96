// Package session ties a sketch to its reference image, the detection
// worker and the OCR engine. The MCP server and the HTTP service each hold
// one Session.
package session
