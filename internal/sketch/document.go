package sketch

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.yaml.in/yaml/v3"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
)

//go:embed schema.json
var documentSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(documentSchema)

// ErrInvalidDocument reports a sketch document that fails schema validation.
var ErrInvalidDocument = errors.New("invalid sketch document")

// Document is the serialised form of a sketch, accepted as JSON or YAML.
type Document struct {
	Grid   GridSpec    `json:"grid"`
	Canvas CanvasSpec  `json:"canvas"`
	Snap   *bool       `json:"snap,omitempty"`
	Shapes []shapeJSON `json:"shapes"`
}

// GridSpec is the grid section of a Document.
type GridSpec struct {
	Cols int `json:"cols,omitempty"`
	Rows int `json:"rows,omitempty"`
}

// CanvasSpec is the canvas section of a Document.
type CanvasSpec struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// ParseDocument decodes and validates a JSON or YAML sketch document. Input
// starting with '{' is read as JSON, anything else as YAML.
func ParseDocument(data []byte) (*Document, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	if raw[0] != '{' {
		var v interface{}
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		converted, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		raw = converted
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	seen := make(map[string]bool, len(doc.Shapes))
	for i, sh := range doc.Shapes {
		if sh.ID == "" {
			continue
		}
		if seen[sh.ID] {
			return nil, fmt.Errorf("%w: shapes.%d: duplicate id %q", ErrInvalidDocument, i, sh.ID)
		}
		seen[sh.ID] = true
	}
	return &doc, nil
}

// GridWith returns the document grid, falling back to base for every field
// the document leaves unset.
func (d *Document) GridWith(base geometry.Grid) geometry.Grid {
	g := base
	if d.Grid.Cols > 0 {
		g.Cols = d.Grid.Cols
	}
	if d.Grid.Rows > 0 {
		g.Rows = d.Grid.Rows
	}
	if d.Canvas.Width > 0 {
		g.CanvasW = d.Canvas.Width
	}
	if d.Canvas.Height > 0 {
		g.CanvasH = d.Canvas.Height
	}
	if d.Snap != nil {
		g.Snap = *d.Snap
	}
	return g.Clamp()
}

// ShapeList returns the document shapes. Missing IDs are generated.
func (d *Document) ShapeList() []Shape {
	out := make([]Shape, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		out = append(out, s.toShape())
	}
	return out
}

// Load replaces the contents of s with the document.
func (d *Document) Load(s *Sketch) {
	s.Replace(d.GridWith(s.Grid()), d.ShapeList())
}

// DocumentOf captures the current state of s.
func DocumentOf(s *Sketch) *Document {
	g := s.Grid()
	snap := g.Snap
	doc := &Document{
		Grid:   GridSpec{Cols: g.Cols, Rows: g.Rows},
		Canvas: CanvasSpec{Width: g.CanvasW, Height: g.CanvasH},
		Snap:   &snap,
	}
	for _, sh := range s.Shapes() {
		switch v := sh.(type) {
		case Rect:
			doc.Shapes = append(doc.Shapes, shapeJSON{Type: KindRect, ID: v.ID, X: v.X, Y: v.Y, W: v.W, H: v.H, Label: v.Label})
		case Path:
			doc.Shapes = append(doc.Shapes, shapeJSON{Type: KindPath, ID: v.ID, Points: v.Points, Label: v.Label})
		case Text:
			doc.Shapes = append(doc.Shapes, shapeJSON{Type: KindText, ID: v.ID, X: v.X, Y: v.Y, Text: v.Text})
		}
	}
	if doc.Shapes == nil {
		doc.Shapes = []shapeJSON{}
	}
	return doc
}
