package sketch

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
)

// Kind identifies the variant of a Shape.
type Kind string

const (
	KindRect Kind = "rect"
	KindPath Kind = "path"
	KindText Kind = "text"
)

// Shape is one of Rect, Path or Text.
type Shape interface {
	ShapeID() string
	Kind() Kind
}

// Rect is a sketched rectangle in canvas pixels.
type Rect struct {
	ID    string
	X     float64
	Y     float64
	W     float64
	H     float64
	Label string
}

// Path is a freehand stroke.
type Path struct {
	ID     string
	Points []geometry.Point
	Label  string
}

// Text is a free-floating label anchored at its top-left corner.
type Text struct {
	ID   string
	X    float64
	Y    float64
	Text string
}

func (r Rect) ShapeID() string { return r.ID }
func (r Rect) Kind() Kind      { return KindRect }

func (p Path) ShapeID() string { return p.ID }
func (p Path) Kind() Kind      { return KindPath }

func (t Text) ShapeID() string { return t.ID }
func (t Text) Kind() Kind      { return KindText }

// Bounds returns the rectangle as a geometry.Rect.
func (r Rect) Bounds() geometry.Rect {
	return geometry.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// Center returns the rectangle centre in pixels.
func (r Rect) Center() geometry.Point {
	return geometry.Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Extents returns the pixel bounding rectangle of the stroke. Degenerate
// strokes get a width and height of at least one pixel.
func (p Path) Extents() geometry.Rect {
	if len(p.Points) == 0 {
		return geometry.Rect{W: 1, H: 1}
	}
	minX, minY := p.Points[0].X, p.Points[0].Y
	maxX, maxY := minX, minY
	for _, pt := range p.Points[1:] {
		minX = min(minX, pt.X)
		minY = min(minY, pt.Y)
		maxX = max(maxX, pt.X)
		maxY = max(maxY, pt.Y)
	}
	return geometry.Rect{
		X: minX,
		Y: minY,
		W: max(1, maxX-minX),
		H: max(1, maxY-minY),
	}
}

// NewID returns a fresh opaque shape identifier.
func NewID() string {
	return uuid.NewString()
}

// Rects returns the rectangles of shapes in their original order.
func Rects(shapes []Shape) []Rect {
	var out []Rect
	for _, s := range shapes {
		if r, ok := s.(Rect); ok {
			out = append(out, r)
		}
	}
	return out
}

// Paths returns the strokes of shapes in their original order.
func Paths(shapes []Shape) []Path {
	var out []Path
	for _, s := range shapes {
		if p, ok := s.(Path); ok {
			out = append(out, p)
		}
	}
	return out
}

// Texts returns the text labels of shapes in their original order.
func Texts(shapes []Shape) []Text {
	var out []Text
	for _, s := range shapes {
		if t, ok := s.(Text); ok {
			out = append(out, t)
		}
	}
	return out
}

// shapeJSON is the wire form shared by every shape variant.
type shapeJSON struct {
	Type   Kind             `json:"type"`
	ID     string           `json:"id,omitempty"`
	X      float64          `json:"x,omitempty"`
	Y      float64          `json:"y,omitempty"`
	W      float64          `json:"w,omitempty"`
	H      float64          `json:"h,omitempty"`
	Label  string           `json:"label,omitempty"`
	Text   string           `json:"text,omitempty"`
	Points []geometry.Point `json:"points,omitempty"`
}

func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal(shapeJSON{Type: KindRect, ID: r.ID, X: r.X, Y: r.Y, W: r.W, H: r.H, Label: r.Label})
}

func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(shapeJSON{Type: KindPath, ID: p.ID, Points: p.Points, Label: p.Label})
}

func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(shapeJSON{Type: KindText, ID: t.ID, X: t.X, Y: t.Y, Text: t.Text})
}

// toShape converts the wire form into its variant. IDs are assigned when
// missing.
func (s shapeJSON) toShape() Shape {
	id := s.ID
	if id == "" {
		id = NewID()
	}
	switch s.Type {
	case KindPath:
		pts := make([]geometry.Point, len(s.Points))
		copy(pts, s.Points)
		return Path{ID: id, Points: pts, Label: s.Label}
	case KindText:
		return Text{ID: id, X: s.X, Y: s.Y, Text: s.Text}
	default:
		n := geometry.NormalizeRect(geometry.Rect{X: s.X, Y: s.Y, W: s.W, H: s.H})
		return Rect{ID: id, X: n.X, Y: n.Y, W: n.W, H: n.H, Label: s.Label}
	}
}
