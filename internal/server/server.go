package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/imaging"
	"github.com/ironsheep/sketch-tools-mcp/internal/session"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// Version is reported to clients during initialize.
var Version = "0.1.0"

// maxRequestSize bounds a single JSON-RPC line.
const maxRequestSize = 8 * 1024 * 1024

// Server handles MCP protocol communication
type Server struct {
	session  *session.Session
	cache    *imaging.ImageCache
	detector session.Detector
	detect   detection.Options
	logger   *slog.Logger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithSession serves an existing session instead of a fresh one.
func WithSession(sess *session.Session) Option {
	return func(s *Server) {
		if sess != nil {
			s.session = sess
		}
	}
}

// WithDetector sets the detector used by image_detect_rectangles. It is
// usually the same client the session uses.
func WithDetector(d session.Detector) Option {
	return func(s *Server) { s.detector = d }
}

// WithDetectionDefaults sets the options a detection tool starts from before
// its arguments are applied.
func WithDetectionDefaults(o detection.Options) Option {
	return func(s *Server) { s.detect = o.WithDefaults() }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new MCP server instance
func New(opts ...Option) *Server {
	s := &Server{
		cache:  imaging.NewImageCache(),
		detect: detection.DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.session == nil {
		s.session = session.New(sketch.DefaultGrid(), session.WithDetector(s.detector), session.WithLogger(s.logger))
	}
	return s
}

// Session returns the session the tools operate on.
func (s *Server) Session() *session.Session {
	return s.session
}

// Run serves requests read line by line from r, writing responses to w,
// until r is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Sketch documents and long paths can make large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxRequestSize)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			if encErr := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); encErr != nil {
				return fmt.Errorf("write response: %w", encErr)
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "sketch-tools-mcp",
				"version": Version,
			},
		},
	}
}
