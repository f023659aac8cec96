package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"runtime/debug"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/export"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/imaging"
	"github.com/ironsheep/sketch-tools-mcp/internal/session"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sketch_add_rect", "sketch_export").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// textResult is returned by tools whose output is already text, such as an
// ASCII export. It is sent as is instead of being encoded as JSON.
type textResult string

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.callTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	text, ok := result.(textResult)
	if !ok {
		text = textResult(mustMarshalJSON(result))
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}
}

// errToolPanic wraps a panic raised by a tool handler.
var errToolPanic = errors.New("tool panicked")

// callTool runs executeTool and turns a panic into an error so that one bad
// call cannot take the server down.
func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panicked", "tool", name, "panic", r, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("%w: %v", errToolPanic, r)
		}
	}()
	return s.executeTool(ctx, name, args)
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls the session, sketch or detection operation
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Sketch Editing
	case "sketch_new":
		return s.handleSketchNew(args)
	case "sketch_add_rect":
		return s.handleSketchAddRect(args)
	case "sketch_add_path":
		return s.handleSketchAddPath(args)
	case "sketch_add_text":
		return s.handleSketchAddText(args)
	case "sketch_rename":
		return s.handleSketchRename(args)
	case "sketch_move":
		return s.handleSketchMove(args)
	case "sketch_delete":
		return s.handleSketchDelete(args)
	case "sketch_clear":
		return s.handleSketchClear()
	case "sketch_list":
		return s.handleSketchList()
	case "sketch_load_document":
		return s.handleSketchLoadDocument(args)

	// Reference Image
	case "sketch_set_reference":
		return s.handleSketchSetReference(args)
	case "sketch_auto_detect":
		return s.handleSketchAutoDetect(ctx, args)
	case "sketch_ocr_labels":
		return s.handleSketchOCRLabels()
	case "sketch_preview":
		return s.handleSketchPreview(args)

	// Export
	case "sketch_export":
		return s.handleSketchExport(args)

	// Stateless Detection
	case "image_detect_rectangles":
		return s.handleImageDetectRectangles(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Sketch Editing Handlers ===

type gridInfo struct {
	Cols         int     `json:"cols"`
	Rows         int     `json:"rows"`
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
	Snap         bool    `json:"snap"`
}

func gridInfoOf(g geometry.Grid) gridInfo {
	return gridInfo{Cols: g.Cols, Rows: g.Rows, CanvasWidth: g.CanvasW, CanvasHeight: g.CanvasH, Snap: g.Snap}
}

type sketchNewArgs struct {
	Cols         int     `json:"cols"`
	Rows         int     `json:"rows"`
	CanvasWidth  float64 `json:"canvas_width"`
	CanvasHeight float64 `json:"canvas_height"`
	Snap         *bool   `json:"snap"`
}

func (s *Server) handleSketchNew(args json.RawMessage) (interface{}, error) {
	var a sketchNewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	g := s.session.Sketch().Grid()
	if a.Cols > 0 {
		g.Cols = a.Cols
	}
	if a.Rows > 0 {
		g.Rows = a.Rows
	}
	if a.CanvasWidth > 0 {
		g.CanvasW = a.CanvasWidth
	}
	if a.CanvasHeight > 0 {
		g.CanvasH = a.CanvasHeight
	}
	if a.Snap != nil {
		g.Snap = *a.Snap
	}
	if err := g.CheckCanvas(); err != nil {
		return nil, err
	}
	s.session.Sketch().Replace(g, nil)
	return gridInfoOf(s.session.Sketch().Grid()), nil
}

type sketchAddRectArgs struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Label string  `json:"label"`
}

func (s *Server) handleSketchAddRect(args json.RawMessage) (interface{}, error) {
	var a sketchAddRectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.session.Sketch().AddRect(geometry.Rect{X: a.X, Y: a.Y, W: a.W, H: a.H}, a.Label), nil
}

type sketchAddPathArgs struct {
	Points []geometry.Point `json:"points"`
	Label  string           `json:"label"`
}

func (s *Server) handleSketchAddPath(args json.RawMessage) (interface{}, error) {
	var a sketchAddPathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.session.Sketch().AddPath(a.Points, a.Label)
}

type sketchAddTextArgs struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

func (s *Server) handleSketchAddText(args json.RawMessage) (interface{}, error) {
	var a sketchAddTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.session.Sketch().AddText(geometry.Point{X: a.X, Y: a.Y}, a.Text)
}

type sketchRenameArgs struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (s *Server) handleSketchRename(args json.RawMessage) (interface{}, error) {
	var a sketchRenameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.session.Sketch().Rename(a.ID, a.Label); err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": a.ID, "label": a.Label}, nil
}

type sketchMoveArgs struct {
	ID string  `json:"id"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handleSketchMove(args json.RawMessage) (interface{}, error) {
	var a sketchMoveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.session.Sketch().Move(a.ID, a.DX, a.DY); err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": a.ID, "dx": a.DX, "dy": a.DY}, nil
}

type shapeIDArgs struct {
	ID string `json:"id"`
}

func (s *Server) handleSketchDelete(args json.RawMessage) (interface{}, error) {
	var a shapeIDArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.session.Sketch().Delete(a.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": a.ID, "remaining": s.session.Sketch().Len()}, nil
}

func (s *Server) handleSketchClear() (interface{}, error) {
	s.session.Sketch().Clear()
	return map[string]interface{}{"cleared": true}, nil
}

type sketchListResult struct {
	Grid      gridInfo               `json:"grid"`
	Shapes    []sketch.Shape         `json:"shapes"`
	Reference *session.ReferenceInfo `json:"reference,omitempty"`
}

func (s *Server) handleSketchList() (interface{}, error) {
	out := sketchListResult{
		Grid:   gridInfoOf(s.session.Sketch().Grid()),
		Shapes: s.session.Sketch().Shapes(),
	}
	if ref, ok := s.session.Reference(); ok {
		out.Reference = &ref
	}
	return out, nil
}

type sketchLoadDocumentArgs struct {
	Path     string `json:"path"`
	Document string `json:"document"`
}

func (s *Server) handleSketchLoadDocument(args json.RawMessage) (interface{}, error) {
	var a sketchLoadDocumentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	data := []byte(a.Document)
	if a.Path != "" {
		b, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		data = b
	}
	doc, err := sketch.ParseDocument(data)
	if err != nil {
		return nil, err
	}
	doc.Load(s.session.Sketch())
	return map[string]interface{}{
		"grid":   gridInfoOf(s.session.Sketch().Grid()),
		"shapes": s.session.Sketch().Len(),
	}, nil
}

// === Reference Image Handlers ===

type sketchSetReferenceArgs struct {
	Path    string   `json:"path"`
	Opacity *float64 `json:"opacity"`
}

func (s *Server) handleSketchSetReference(args json.RawMessage) (interface{}, error) {
	var a sketchSetReferenceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Opacity != nil {
		s.session.SetOpacity(*a.Opacity)
	}
	if a.Path == "" {
		if a.Opacity != nil {
			if ref, ok := s.session.Reference(); ok {
				return ref, nil
			}
		}
		s.session.ClearReference()
		return map[string]interface{}{"reference": nil}, nil
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	s.session.SetReference(img, a.Path)
	ref, _ := s.session.Reference()
	return ref, nil
}

// detectArgs are the tunables shared by the detection tools. Zero fields
// keep the server defaults.
type detectArgs struct {
	MinSize   int     `json:"min_size"`
	Canny1    float64 `json:"canny1"`
	Canny2    float64 `json:"canny2"`
	ApproxEps float64 `json:"approx_eps"`
	IoUThresh float64 `json:"iou_thresh"`
	MaxDim    int     `json:"max_dim"`
}

func (a detectArgs) options(base detection.Options) detection.Options {
	o := base
	if a.MinSize > 0 {
		o.MinSize = a.MinSize
	}
	if a.Canny1 > 0 {
		o.Canny1 = a.Canny1
	}
	if a.Canny2 > 0 {
		o.Canny2 = a.Canny2
	}
	if a.ApproxEps > 0 {
		o.ApproxEps = a.ApproxEps
	}
	if a.IoUThresh > 0 {
		o.IoUThresh = a.IoUThresh
	}
	if a.MaxDim > 0 {
		o.MaxDim = a.MaxDim
	}
	return o
}

func (s *Server) handleSketchAutoDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	rects, err := s.session.AutoDetect(ctx, a.options(s.detect))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"count": len(rects), "rectangles": rects}, nil
}

func (s *Server) handleSketchOCRLabels() (interface{}, error) {
	texts, err := s.session.ImportReferenceText()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"count": len(texts), "texts": texts}, nil
}

type sketchPreviewArgs struct {
	X1     int     `json:"x1"`
	Y1     int     `json:"y1"`
	X2     int     `json:"x2"`
	Y2     int     `json:"y2"`
	Scale  float64 `json:"scale"`
	Grid   *bool   `json:"grid"`
	Labels bool    `json:"labels"`
	Shapes *bool   `json:"shapes"`
}

func (s *Server) handleSketchPreview(args json.RawMessage) (interface{}, error) {
	var a sketchPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	opts := session.PreviewOptions{
		Region: image.Rect(a.X1, a.Y1, a.X2, a.Y2),
		Scale:  a.Scale,
		Grid:   a.Grid == nil || *a.Grid,
		Labels: a.Labels,
		Shapes: a.Shapes == nil || *a.Shapes,
	}
	return s.session.Preview(opts)
}

// === Export Handlers ===

type sketchExportArgs struct {
	Format string `json:"format"`
}

func (s *Server) handleSketchExport(args json.RawMessage) (interface{}, error) {
	var a sketchExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Format == "" {
		a.Format = string(export.FormatJSON)
	}
	f, err := export.ParseFormat(a.Format)
	if err != nil {
		return nil, err
	}
	out, err := s.session.Export(f)
	if err != nil {
		return nil, err
	}
	return textResult(out), nil
}

// === Stateless Detection Handlers ===

// errNoDetector is returned by image_detect_rectangles when the server was
// built without a detector.
var errNoDetector = errors.New("rectangle detection is not configured")

type imageDetectRectanglesArgs struct {
	Path string `json:"path"`
	detectArgs
}

type imageDetectRectanglesResult struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Count      int            `json:"count"`
	Rectangles []geometry.Box `json:"rectangles"`
}

func (s *Server) handleImageDetectRectangles(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageDetectRectanglesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.detector == nil {
		return nil, errNoDetector
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	frame := imaging.ToFrame(img)
	width, height := frame.Width, frame.Height
	boxes, err := s.detector.Detect(ctx, &frame, a.options(s.detect))
	if err != nil {
		return nil, err
	}
	return imageDetectRectanglesResult{
		Width:      width,
		Height:     height,
		Count:      len(boxes),
		Rectangles: boxes,
	}, nil
}
