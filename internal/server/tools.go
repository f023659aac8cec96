package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// detectProperties are the optional tunables of the detection tools.
func detectProperties() map[string]interface{} {
	return map[string]interface{}{
		"min_size":   prop("integer", "Rectangles must be wider and taller than this many pixels of the analysed image. Default 40"),
		"canny1":     prop("number", "Low edge hysteresis threshold. Default 50"),
		"canny2":     prop("number", "High edge hysteresis threshold. Default 150"),
		"approx_eps": prop("number", "Polygon approximation tolerance in pixels. Default 8"),
		"iou_thresh": prop("number", "Overlap (intersection over union) at which rectangles are merged. Default 0.15"),
		"max_dim":    prop("integer", "Images with a longer side than this are downscaled before analysis. Default 1400"),
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	pathProps := detectProperties()
	pathProps["path"] = prop("string", "Absolute path to the image file")

	return []Tool{
		// Sketch Editing
		{
			Name:        "sketch_new",
			Description: "Start a new empty sketch. Grid and canvas fields left out keep their current values.",
			InputSchema: objectSchema(map[string]interface{}{
				"cols":          prop("integer", "Grid columns (2-48)"),
				"rows":          prop("integer", "Grid rows (2-48)"),
				"canvas_width":  prop("number", "Canvas width in pixels"),
				"canvas_height": prop("number", "Canvas height in pixels"),
				"snap":          prop("boolean", "Snap rectangle corners to grid lines"),
			}),
		},
		{
			Name:        "sketch_add_rect",
			Description: "Add a rectangle in canvas pixels. Corners snap to the grid when snapping is on. Without a label it is named box#N.",
			InputSchema: objectSchema(map[string]interface{}{
				"x":     prop("number", "Left edge"),
				"y":     prop("number", "Top edge"),
				"w":     prop("number", "Width (negative values flip the rectangle)"),
				"h":     prop("number", "Height (negative values flip the rectangle)"),
				"label": prop("string", "Widget name; prefixes such as button: or entry: select the widget kind"),
			}, "x", "y", "w", "h"),
		},
		{
			Name:        "sketch_add_path",
			Description: "Add a freehand stroke. Strokes that trace a box are turned into rectangles on export.",
			InputSchema: objectSchema(map[string]interface{}{
				"points": map[string]interface{}{
					"type":        "array",
					"description": "Stroke points in canvas pixels",
					"items": objectSchema(map[string]interface{}{
						"x": prop("number", "X coordinate"),
						"y": prop("number", "Y coordinate"),
					}, "x", "y"),
				},
				"label": prop("string", "Optional label"),
			}, "points"),
		},
		{
			Name:        "sketch_add_text",
			Description: "Add a text label with its top-left corner at (x, y). Text is attached to the nearest rectangle on export.",
			InputSchema: objectSchema(map[string]interface{}{
				"x":    prop("number", "Left edge"),
				"y":    prop("number", "Top edge"),
				"text": prop("string", "Label text"),
			}, "x", "y", "text"),
		},
		{
			Name:        "sketch_rename",
			Description: "Change a rectangle or path label, or the content of a text.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":    prop("string", "Shape ID"),
				"label": prop("string", "New label"),
			}, "id", "label"),
		},
		{
			Name:        "sketch_move",
			Description: "Translate a shape by (dx, dy) pixels.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": prop("string", "Shape ID"),
				"dx": prop("number", "Horizontal offset"),
				"dy": prop("number", "Vertical offset"),
			}, "id"),
		},
		{
			Name:        "sketch_delete",
			Description: "Remove a shape.",
			InputSchema: objectSchema(map[string]interface{}{
				"id": prop("string", "Shape ID"),
			}, "id"),
		},
		{
			Name:        "sketch_clear",
			Description: "Remove every shape. The grid and reference image are kept.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "sketch_list",
			Description: "List the grid, every shape and the reference image, if any.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "sketch_load_document",
			Description: "Replace the sketch with a JSON or YAML sketch document, given inline or as a file path. Invalid documents are rejected and leave the sketch unchanged.",
			InputSchema: objectSchema(map[string]interface{}{
				"path":     prop("string", "Absolute path to a document file"),
				"document": prop("string", "Document text, used when no path is given"),
			}),
		},

		// Reference Image
		{
			Name:        "sketch_set_reference",
			Description: "Trace over an image: it is scaled to fit the canvas, centred and shown at the given opacity. An empty path removes the reference.",
			InputSchema: objectSchema(map[string]interface{}{
				"path":    prop("string", "Absolute path to the image file"),
				"opacity": prop("number", "Reference opacity from 0 to 1. Default 0.35"),
			}),
		},
		{
			Name:        "sketch_auto_detect",
			Description: "Find rectangles in the reference image as it appears behind the canvas and add each one as auto#xxxx.",
			InputSchema: objectSchema(detectProperties()),
		},
		{
			Name:        "sketch_ocr_labels",
			Description: "Read the words of the reference image and add each one as text at its position on the canvas.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "sketch_preview",
			Description: "Render the canvas as a PNG: the reference image, the layout grid and the outlines of rectangles and paths. Optionally crop to a region (x1,y1)-(x2,y2) in canvas pixels and scale.",
			InputSchema: objectSchema(map[string]interface{}{
				"x1":     prop("integer", "Left edge of the region (omit all four for the whole canvas)"),
				"y1":     prop("integer", "Top edge of the region"),
				"x2":     prop("integer", "Right edge of the region"),
				"y2":     prop("integer", "Bottom edge of the region"),
				"scale":  prop("number", "Scale factor for the output (default 1.0)"),
				"grid":   prop("boolean", "Draw the layout grid (default true)"),
				"labels": prop("boolean", "Number the grid columns and rows (default false)"),
				"shapes": prop("boolean", "Draw rectangle and path outlines (default true)"),
			}),
		},

		// Export
		{
			Name:        "sketch_export",
			Description: "Export the sketch as a layout: json, ascii, tk-grid, tk-place or tk-hybrid.",
			InputSchema: objectSchema(map[string]interface{}{
				"format": map[string]interface{}{
					"type":        "string",
					"description": "Export format",
					"enum":        []string{"json", "ascii", "tk-grid", "tk-place", "tk-hybrid"},
					"default":     "json",
				},
			}),
		},

		// Stateless Detection
		{
			Name:        "image_detect_rectangles",
			Description: "Find rectangles in an image file. Coordinates are in the pixels of the original image. The sketch is not modified.",
			InputSchema: objectSchema(pathProps, "path"),
		},
	}
}

func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
